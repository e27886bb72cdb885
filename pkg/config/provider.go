package config

import (
	"fmt"
	"net"

	"example.com/DeployTools/pkg/models"
	"example.com/DeployTools/pkg/utils/concurrent"
)

type Provider struct {
	cfg         *Configuration
	lookupIndex *concurrent.Map[string, string]
}

func NewProvider(cfg *Configuration) ConfigProvider {
	provider := Provider{
		cfg:         cfg,
		lookupIndex: concurrent.NewMap[string, string](concurrent.HashString),
	}
	provider.init()
	return provider
}

func (cp Provider) init() {
	for _, nodeId := range cp.cfg.Nodes.Keys() {
		cp.add(nodeId)
	}
}

// add 将节点及其所有标识符(user@addr:port / 别名)加入索引
func (cp Provider) add(nodeId string) {
	node, ok := cp.GetNode(nodeId)
	if !ok {
		return
	}
	identity, ok := cp.GetIdentity(nodeId)
	if !ok {
		return
	}
	host, ok := cp.GetHost(nodeId)
	if !ok {
		return
	}
	cp.lookupIndex.Set(nodeId, nodeId)
	cp.lookupIndex.Set(normalizeAddr(host.Address), nodeId)
	for _, addr := range host.Alias {
		if addr != "" {
			cp.lookupIndex.Set(normalizeAddr(addr), nodeId)
		}
	}
	if identity.User != "" {
		cp.lookupIndex.Set(fmt.Sprintf("%s@%s:%d", identity.User, host.Address, host.Port), nodeId)
		for _, addr := range host.Alias {
			if addr == "" {
				continue
			}
			cp.lookupIndex.Set(fmt.Sprintf("%s@%s:%d", identity.User, addr, host.Port), nodeId)
		}
	}
	for _, alias := range node.Alias {
		if alias == "" {
			continue
		}
		cp.lookupIndex.Set(alias, nodeId)
	}
}

// normalizeAddr 把 IP 统一成规范写法 (如 0:0:0:0:0:0:0:1 → ::1)
func normalizeAddr(addr string) string {
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String()
	}
	return addr
}

// Find 匹配用户输入,未命中返回空串
func (cp Provider) Find(input string) string {
	if nodeId, ok := cp.lookupIndex.Get(input); ok {
		return nodeId
	}
	if nodeId, ok := cp.lookupIndex.Get(normalizeAddr(input)); ok {
		return nodeId
	}
	return ""
}

func (cp Provider) GetNode(nodeId string) (models.Node, bool) {
	return cp.cfg.Nodes.Get(nodeId)
}

func (cp Provider) GetHost(nodeId string) (models.Host, bool) {
	if node, ok := cp.cfg.Nodes.Get(nodeId); ok {
		return cp.cfg.Hosts.Get(node.HostRef)
	}
	return models.Host{}, false
}

func (cp Provider) GetIdentity(nodeId string) (models.Identity, bool) {
	if node, ok := cp.cfg.Nodes.Get(nodeId); ok {
		return cp.cfg.Identities.Get(node.IdentityRef)
	}
	return models.Identity{}, false
}

func (cp Provider) GetDeployment(name string) (DeploymentSpec, bool) {
	return cp.cfg.Deployments.Get(name)
}

func (cp Provider) AddNode(nodeId string, node models.Node) {
	cp.cfg.Nodes.Set(nodeId, node)
	cp.add(nodeId)
}

func (cp Provider) AddHost(hostId string, host models.Host) {
	cp.cfg.Hosts.Set(hostId, host)
}

func (cp Provider) AddIdentity(identityId string, identity models.Identity) {
	cp.cfg.Identities.Set(identityId, identity)
}

// DeleteNode 删除节点及其索引项
// 仅当 host/identity 不再被其他节点引用时才一并删除
func (cp Provider) DeleteNode(nodeId string) {
	node, ok := cp.cfg.Nodes.Get(nodeId)
	if !ok {
		return
	}
	cp.cfg.Nodes.Remove(nodeId)

	hostShared, identityShared := false, false
	cp.cfg.Nodes.IterCb(func(_ string, other models.Node) bool {
		if other.HostRef == node.HostRef {
			hostShared = true
		}
		if other.IdentityRef == node.IdentityRef {
			identityShared = true
		}
		return true
	})
	if !hostShared {
		cp.cfg.Hosts.Remove(node.HostRef)
	}
	if !identityShared {
		cp.cfg.Identities.Remove(node.IdentityRef)
	}

	// 索引指向该节点的条目全部失效
	for _, key := range cp.lookupIndex.Keys() {
		if target, ok := cp.lookupIndex.Get(key); ok && target == nodeId {
			cp.lookupIndex.Remove(key)
		}
	}
}

func (cp Provider) ListNodes() map[string]models.Node {
	nodes := make(map[string]models.Node)
	cp.cfg.Nodes.IterCb(func(k string, v models.Node) bool {
		nodes[k] = v
		return true
	})
	return nodes
}

func (cp Provider) ListDeployments() map[string]DeploymentSpec {
	deployments := make(map[string]DeploymentSpec)
	cp.cfg.Deployments.IterCb(func(k string, v DeploymentSpec) bool {
		deployments[k] = v
		return true
	})
	return deployments
}

func (cp Provider) GetNodesByTag(tag string) map[string]models.Node {
	nodes := make(map[string]models.Node)
	cp.cfg.Nodes.IterCb(func(k string, v models.Node) bool {
		for _, t := range v.Tags {
			if t == tag {
				nodes[k] = v
				break
			}
		}
		return true
	})
	return nodes
}
