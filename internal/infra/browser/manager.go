// Package browser 管理 Chrome headless 的生命周期：启动（或连接远程实例）、开页、释放。
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/John-Robertt/boxoffice/internal/infra/httpx"
)

// Config 配置浏览器管理器。
type Config struct {
	// RemoteURL 是外部 Chrome 的 DevTools WebSocket 地址；为空则本地启动。
	RemoteURL string

	// Bin 是本地 Chrome 可执行文件路径；为空时由 launcher 自动查找/下载。
	Bin string

	// Headless 仅对本地启动生效。
	Headless bool

	// Proxy 是本地启动时传给 Chrome 的 --proxy-server（例如 http://127.0.0.1:7890）。
	Proxy string

	// Stealth 为 true 时用 go-rod/stealth 创建页面（注入反自动化检测脚本）。
	Stealth bool

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager 持有一个浏览器进程（或远程连接）。
//
// 约束：一次运行只 Start 一次、Close 一次；Close 可重复调用。
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager 创建 Manager；调用 Start 才会真正启动浏览器。
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start 启动本地 Chrome 或连接远程实例。
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.New("browser: manager is closed")
	}
	if m.browser != nil {
		return nil
	}

	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx).Headless(m.cfg.Headless)
		if m.cfg.Bin != "" {
			l = l.Bin(m.cfg.Bin)
		}
		if m.cfg.Proxy != "" {
			l = l.Proxy(m.cfg.Proxy)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")

		u, err := l.Launch()
		if err != nil {
			l.Cleanup()
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "headless", m.cfg.Headless)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		// 连接失败也必须释放已启动的进程。
		m.cleanupLocked()
		return fmt.Errorf("browser: connect: %w", err)
	}
	m.browser = b
	return nil
}

// NewPage 打开一个空白 tab。
func (m *Manager) NewPage() (*rod.Page, error) {
	m.mu.Lock()
	b := m.browser
	m.mu.Unlock()
	if b == nil {
		return nil, errors.New("browser: no active browser")
	}

	if m.cfg.Stealth {
		p, err := stealth.Page(b)
		if err != nil {
			return nil, fmt.Errorf("browser: create stealth tab: %w", err)
		}
		return p, nil
	}

	p, err := b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}
	if err := p.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: httpx.RandomUserAgent()}); err != nil {
		m.cfg.Logger.Warn("browser: set user agent failed", "error", err)
	}
	return p, nil
}

// Close 关闭浏览器并清理本地进程。
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	return m.cleanupLocked()
}

func (m *Manager) cleanupLocked() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	if err != nil {
		m.cfg.Logger.Warn("browser: close failed", "error", err)
	}
	return err
}
