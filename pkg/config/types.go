package config

import (
	"example.com/DeployTools/pkg/models"
	"example.com/DeployTools/pkg/utils/concurrent"
)

// Configuration 对应 yaml 配置文件的顶层结构
type Configuration struct {
	Identities  *concurrent.Map[string, models.Identity] `yaml:"identities"`
	Hosts       *concurrent.Map[string, models.Host]     `yaml:"hosts"`
	Nodes       *concurrent.Map[string, models.Node]     `yaml:"nodes"`
	Deployments *concurrent.Map[string, DeploymentSpec]  `yaml:"deployments"`
}

// NewConfiguration 创建一个空的配置结构
func NewConfiguration() *Configuration {
	return &Configuration{
		Identities:  concurrent.NewMap[string, models.Identity](concurrent.HashString),
		Hosts:       concurrent.NewMap[string, models.Host](concurrent.HashString),
		Nodes:       concurrent.NewMap[string, models.Node](concurrent.HashString),
		Deployments: concurrent.NewMap[string, DeploymentSpec](concurrent.HashString),
	}
}

// ConfigProvider 定义 Connector 和 Workflow 获取配置数据的接口
type ConfigProvider interface {
	GetNode(name string) (models.Node, bool)
	GetHost(name string) (models.Host, bool)
	GetIdentity(name string) (models.Identity, bool)
	GetDeployment(name string) (DeploymentSpec, bool)
	AddHost(name string, host models.Host)
	AddIdentity(name string, identity models.Identity)
	AddNode(name string, node models.Node)
	DeleteNode(name string)
	ListNodes() map[string]models.Node
	ListDeployments() map[string]DeploymentSpec
	GetNodesByTag(tag string) map[string]models.Node
	Find(input string) string
}
