package cmd

import (
	"context"
	"fmt"

	cmdutils "example.com/DeployTools/cmd/utils"
	"example.com/DeployTools/pkg/config"
	"example.com/DeployTools/pkg/executor"
	"example.com/DeployTools/pkg/models"
	"example.com/DeployTools/pkg/ssh"
)

// runtimeEnv 聚合一次命令执行需要的配置和连接资源
type runtimeEnv struct {
	store     config.Store
	cfg       *config.Configuration
	provider  config.ConfigProvider
	connector *ssh.Connector
}

func newRuntimeEnv() (*runtimeEnv, error) {
	configPath, keyPath := cmdutils.GetConfigFilePath()
	store, err := config.NewDefaultStore(configPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("初始化配置存储失败: %w", err)
	}
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("加载配置文件失败: %w", err)
	}
	provider := config.NewProvider(cfg)
	return &runtimeEnv{
		store:     store,
		cfg:       cfg,
		provider:  provider,
		connector: ssh.NewConnector(provider),
	}, nil
}

func (e *runtimeEnv) Close() {
	e.connector.CloseAll()
}

// save 把当前配置写回磁盘,敏感字段在落盘前加密
func (e *runtimeEnv) save() error {
	return e.store.Save(e.cfg)
}

// lookupDeployment 取出并校验部署配置,返回填充过缺省值的副本
func (e *runtimeEnv) lookupDeployment(name string) (config.DeploymentSpec, models.Host, error) {
	spec, ok := e.provider.GetDeployment(name)
	if !ok {
		return config.DeploymentSpec{}, models.Host{}, fmt.Errorf("部署 '%s' 不存在", name)
	}
	if err := spec.Validate(); err != nil {
		return config.DeploymentSpec{}, models.Host{}, err
	}
	nodeId := e.provider.Find(spec.Node)
	if nodeId == "" {
		nodeId = spec.Node
	}
	host, ok := e.provider.GetHost(nodeId)
	if !ok {
		return config.DeploymentSpec{}, models.Host{}, fmt.Errorf("部署 '%s' 引用的节点 '%s' 不存在", name, spec.Node)
	}
	return spec.Normalize(), host, nil
}

// connectExecutor 建立到部署目标节点的 SSH 连接并包装为执行器
func (e *runtimeEnv) connectExecutor(ctx context.Context, spec config.DeploymentSpec) (executor.Executor, *ssh.Client, error) {
	nodeId := e.provider.Find(spec.Node)
	if nodeId == "" {
		nodeId = spec.Node
	}
	client, err := e.connector.Connect(ctx, nodeId)
	if err != nil {
		return nil, nil, err
	}
	// 提权密码优先用节点配置,缺省回退到登录密码
	sudoPwd := client.Node().SudoPwd
	if sudoPwd == "" {
		if id, ok := e.provider.GetIdentity(nodeId); ok {
			sudoPwd = id.Password
		}
	}
	return executor.NewSSHExecutor(client, sudoPwd), client, nil
}
