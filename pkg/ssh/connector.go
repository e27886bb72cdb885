package ssh

import (
	"context"
	"fmt"
	"net"
	"time"

	"example.com/DeployTools/pkg/config"
	"example.com/DeployTools/pkg/logger"
	"example.com/DeployTools/pkg/utils/concurrent"
	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"
)

const (
	defaultDialTimeout      = 10 * time.Second
	defaultHandshakeTimeout = 15 * time.Second
	keepAliveInterval       = 30 * time.Second
)

// Connector 负责创建 SSH 连接
// 每个节点至多维持一条底层传输,重复 Connect 复用缓存
type Connector struct {
	Config config.ConfigProvider
	// 连接池: nodeName -> *Client
	clients *concurrent.Map[string, *Client]
	// singleflight 合并并发的连接请求
	sf singleflight.Group
}

// NewConnector 创建一个新的 Connector
func NewConnector(cfg config.ConfigProvider) *Connector {
	return &Connector{
		Config:  cfg,
		clients: concurrent.NewMap[string, *Client](concurrent.HashString),
	}
}

// Connect 根据节点名称建立 SSH 连接
// 自动处理跳板机逻辑: 如果节点配置了 ProxyJump,会递归建立连接
func (c *Connector) Connect(ctx context.Context, nodeName string) (*Client, error) {
	if cached, ok := c.clients.Get(nodeName); ok {
		return cached, nil
	}
	// 即使多个协程同时 Connect 同一节点,Do 里面的函数也只执行一次
	result, err, _ := c.sf.Do(nodeName, func() (interface{}, error) {
		// 双重检查: 防止进入 Do 前的瞬间别的协程刚好建好了连接
		if cached, ok := c.clients.Get(nodeName); ok {
			return cached, nil
		}

		node, ok := c.Config.GetNode(nodeName)
		if !ok {
			return nil, fmt.Errorf("node not found '%s'", nodeName)
		}
		host, ok := c.Config.GetHost(nodeName)
		if !ok {
			return nil, fmt.Errorf("host ref '%s' not found for node '%s'", node.HostRef, nodeName)
		}
		identity, ok := c.Config.GetIdentity(nodeName)
		if !ok {
			return nil, fmt.Errorf("identity ref '%s' not found for node '%s'", node.IdentityRef, nodeName)
		}

		// 确定网络拨号器: 默认直连,配置了 ProxyJump 则递归连接跳板机
		var dialer Dialer = &net.Dialer{Timeout: defaultDialTimeout}
		if node.ProxyJump != "" {
			jumpName := c.Config.Find(node.ProxyJump)
			if jumpName == "" {
				jumpName = node.ProxyJump
			}
			jumpClient, err := c.Connect(ctx, jumpName)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to jump host '%s': %w", node.ProxyJump, err)
			}
			dialer = &ProxyDialer{Client: jumpClient.sshClient}
		}

		authMethods, err := buildAuthMethods(identity)
		if err != nil {
			return nil, fmt.Errorf("failed to build ssh config for '%s': %w", nodeName, err)
		}
		sshConfig := &ssh.ClientConfig{
			User:            identity.User,
			Auth:            authMethods,
			HostKeyCallback: ssh.InsecureIgnoreHostKey(), // TODO: 集成 known_hosts 检查
			Timeout:         defaultHandshakeTimeout,
		}

		targetAddr := fmt.Sprintf("%s:%d", host.Address, host.Port)
		conn, err := dialer.DialContext(ctx, "tcp", targetAddr)
		if err != nil {
			return nil, &ConnectionError{Host: targetAddr, Err: err}
		}

		ncc, chans, reqs, err := ssh.NewClientConn(conn, targetAddr, sshConfig)
		if err != nil {
			conn.Close()
			return nil, &ConnectionError{Host: targetAddr, Err: fmt.Errorf("ssh handshake failed: %w", err)}
		}
		rawClient := ssh.NewClient(ncc, chans, reqs)

		// 保活: 长时间构建期间连接空闲,靠心跳探测断连
		StartKeepAlive(rawClient, keepAliveInterval, func(err error) {
			logger.Logger.Warn("ssh keepalive failed", "node", nodeName, "error", err)
			c.clients.Remove(nodeName)
		})

		client := NewClient(rawClient, &node, targetAddr)
		c.clients.Set(nodeName, client)
		logger.Logger.Debug("ssh connected", "node", nodeName, "addr", targetAddr)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*Client), nil
}

// CloseAll 关闭所有缓存的连接 (在程序退出前调用)
func (c *Connector) CloseAll() {
	c.clients.IterCb(func(name string, client *Client) bool {
		client.Close()
		return true
	})
	c.clients.Clear()
}
