package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration 包装 time.Duration 以支持 yaml 中 "30s"/"5m" 这类写法
type Duration struct {
	time.Duration
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration '%s': %w", raw, err)
	}
	d.Duration = parsed
	return nil
}

// MatchMode 决定如何判断容器处于运行状态
// 不同版本的容器工具输出格式不一致,这里做成策略配置
type MatchMode string

const (
	// MatchSubstring 在 ps 输出中查找 RunningPattern 子串 (默认 "Up")
	MatchSubstring MatchMode = "substring"
	// MatchFilter 使用 ps --filter status=running 过滤后按名称匹配
	MatchFilter MatchMode = "filter"
)

// ArtifactEntry 描述一条本地到远程的传输项
// Local 为目录时会在传输阶段递归展开
type ArtifactEntry struct {
	Local  string `yaml:"local"`
	Remote string `yaml:"remote"` // 相对 RemoteRoot 的路径
}

// HealthSpec 描述部署完成后的就绪检查
type HealthSpec struct {
	Port           uint16    `yaml:"port"`
	Path           string    `yaml:"path,omitempty"`            // 默认 "/"
	Match          MatchMode `yaml:"match,omitempty"`           // 默认 substring
	RunningPattern string    `yaml:"running_pattern,omitempty"` // 默认 "Up"
	Timeout        Duration  `yaml:"timeout,omitempty"`         // 默认 60s
	Interval       Duration  `yaml:"interval,omitempty"`        // 默认 3s
}

// DeploymentSpec 描述一次部署的全部静态信息
// 所有主机地址/路径/候选命令都来自配置,代码中不允许出现硬编码目标
type DeploymentSpec struct {
	Node       string `yaml:"node"`        // 目标节点名
	RemoteRoot string `yaml:"remote_root"` // 远程部署根目录
	Service    string `yaml:"service"`     // compose 服务名
	Container  string `yaml:"container"`   // 容器名,用于状态匹配和日志

	// 工具候选列表,按优先级排列,探测到第一个可用的即停止
	EngineCandidates  []string `yaml:"engine_candidates,omitempty"`
	ComposeCandidates []string `yaml:"compose_candidates,omitempty"`

	Artifacts []ArtifactEntry `yaml:"artifacts,omitempty"`
	StateDirs []string        `yaml:"state_dirs,omitempty"` // 幂等创建的持久化子目录

	Health       HealthSpec `yaml:"health"`
	LogTail      int        `yaml:"log_tail,omitempty"`      // 失败时抓取的日志行数,默认 50
	BuildTimeout Duration   `yaml:"build_timeout,omitempty"` // 默认 15m
}

// 默认候选列表,仅在配置未提供时使用
var (
	DefaultEngineCandidates  = []string{"docker", "/usr/local/bin/docker", "podman"}
	DefaultComposeCandidates = []string{"docker compose", "docker-compose", "podman-compose"}
)

// Normalize 填充缺省值,返回一个可直接使用的副本
func (s DeploymentSpec) Normalize() DeploymentSpec {
	if len(s.EngineCandidates) == 0 {
		s.EngineCandidates = DefaultEngineCandidates
	}
	if len(s.ComposeCandidates) == 0 {
		s.ComposeCandidates = DefaultComposeCandidates
	}
	if s.Health.Path == "" {
		s.Health.Path = "/"
	}
	if s.Health.Match == "" {
		s.Health.Match = MatchSubstring
	}
	if s.Health.RunningPattern == "" {
		s.Health.RunningPattern = "Up"
	}
	if s.Health.Timeout.Duration == 0 {
		s.Health.Timeout.Duration = 60 * time.Second
	}
	if s.Health.Interval.Duration == 0 {
		s.Health.Interval.Duration = 3 * time.Second
	}
	if s.LogTail <= 0 {
		s.LogTail = 50
	}
	if s.BuildTimeout.Duration == 0 {
		s.BuildTimeout.Duration = 15 * time.Minute
	}
	if s.Container == "" {
		s.Container = s.Service
	}
	return s
}

// Validate 检查必填字段
func (s DeploymentSpec) Validate() error {
	if s.Node == "" {
		return fmt.Errorf("deployment: node is required")
	}
	if s.RemoteRoot == "" {
		return fmt.Errorf("deployment: remote_root is required")
	}
	if s.Service == "" && s.Container == "" {
		return fmt.Errorf("deployment: service or container is required")
	}
	if s.Health.Port == 0 {
		return fmt.Errorf("deployment: health.port is required")
	}
	return nil
}
