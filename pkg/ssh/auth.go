package ssh

import (
	"fmt"
	"os"

	"example.com/DeployTools/pkg/models"
	"golang.org/x/crypto/ssh"
)

// buildAuthMethods 根据 Identity 构建认证方式
func buildAuthMethods(id models.Identity) ([]ssh.AuthMethod, error) {
	switch id.AuthType {
	case "password":
		if id.Password == "" {
			return nil, fmt.Errorf("auth type is password but password is empty")
		}
		return []ssh.AuthMethod{ssh.Password(id.Password)}, nil

	case "key":
		if id.KeyPath == "" {
			return nil, fmt.Errorf("auth type is key but key_path is empty")
		}
		keyBytes, err := os.ReadFile(expandHomeDir(id.KeyPath))
		if err != nil {
			return nil, fmt.Errorf("failed to read key file: %w", err)
		}
		var signer ssh.Signer
		if id.Passphrase != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(keyBytes, []byte(id.Passphrase))
		} else {
			signer, err = ssh.ParsePrivateKey(keyBytes)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil

	default:
		return nil, fmt.Errorf("unsupported auth type: %s", id.AuthType)
	}
}

// expandHomeDir 简单的路径处理辅助函数
func expandHomeDir(path string) string {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			return home + path[1:]
		}
	}
	return path
}
