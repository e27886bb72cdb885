package config

import (
	"fmt"
	"os"
	"path/filepath"

	"example.com/DeployTools/pkg/crypto"
	"gopkg.in/yaml.v3"
)

type Store interface {
	Load() (*Configuration, error)
	Save(cfg *Configuration) error
}

type defaultStore struct {
	Path    string
	crypter *crypto.Crypter
}

// NewDefaultStore 创建基于 yaml 文件的配置存储
// keyPath 指向加密密钥文件,不存在时自动生成
func NewDefaultStore(path string, keyPath string) (Store, error) {
	key, err := crypto.LoadOrGenerateKey(keyPath)
	if err != nil {
		return nil, fmt.Errorf("load config key: %w", err)
	}
	crypter, err := crypto.NewCrypter(key)
	if err != nil {
		return nil, err
	}
	return &defaultStore{Path: path, crypter: crypter}, nil
}

func (s *defaultStore) Load() (*Configuration, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			// 首次运行配置文件不存在是正常情况
			return NewConfiguration(), nil
		}
		return nil, err
	}
	config := NewConfiguration()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config '%s': %w", s.Path, err)
	}
	// 解密 Identities 中的敏感字段
	for _, name := range config.Identities.Keys() {
		id, ok := config.Identities.Get(name)
		if !ok {
			continue
		}
		if id.Password, err = s.reveal(id.Password); err != nil {
			return nil, fmt.Errorf("decrypt password for identity '%s': %w", name, err)
		}
		if id.Passphrase, err = s.reveal(id.Passphrase); err != nil {
			return nil, fmt.Errorf("decrypt passphrase for identity '%s': %w", name, err)
		}
		config.Identities.Set(name, id)
	}
	for _, name := range config.Nodes.Keys() {
		node, ok := config.Nodes.Get(name)
		if !ok {
			continue
		}
		if node.SudoPwd, err = s.reveal(node.SudoPwd); err != nil {
			return nil, fmt.Errorf("decrypt sudo password for node '%s': %w", name, err)
		}
		config.Nodes.Set(name, node)
	}
	return config, nil
}

func (s *defaultStore) Save(cfg *Configuration) error {
	// 序列化前加密敏感字段,使用快照避免污染内存中的明文配置
	out := NewConfiguration()
	var err error
	for _, name := range cfg.Identities.Keys() {
		id, ok := cfg.Identities.Get(name)
		if !ok {
			continue
		}
		if id.Password, err = s.conceal(id.Password); err != nil {
			return err
		}
		if id.Passphrase, err = s.conceal(id.Passphrase); err != nil {
			return err
		}
		out.Identities.Set(name, id)
	}
	for _, name := range cfg.Hosts.Keys() {
		if h, ok := cfg.Hosts.Get(name); ok {
			out.Hosts.Set(name, h)
		}
	}
	for _, name := range cfg.Nodes.Keys() {
		node, ok := cfg.Nodes.Get(name)
		if !ok {
			continue
		}
		if node.SudoPwd, err = s.conceal(node.SudoPwd); err != nil {
			return err
		}
		out.Nodes.Set(name, node)
	}
	for _, name := range cfg.Deployments.Keys() {
		if d, ok := cfg.Deployments.Get(name); ok {
			out.Deployments.Set(name, d)
		}
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return err
	}
	return os.WriteFile(s.Path, data, 0600)
}

// conceal 加密非空明文,已加密的内容原样保留
func (s *defaultStore) conceal(value string) (string, error) {
	if value == "" || crypto.IsEncrypted(value) {
		return value, nil
	}
	return s.crypter.Encrypt(value)
}

// reveal 解密 ENC: 前缀的内容,明文原样返回(兼容手工编辑的配置)
func (s *defaultStore) reveal(value string) (string, error) {
	if !crypto.IsEncrypted(value) {
		return value, nil
	}
	return s.crypter.Decrypt(value)
}
