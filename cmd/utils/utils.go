package utils

import (
	"fmt"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"golang.org/x/term"
)

const (
	ConfigFileName = "config.yaml"
	ConfigKeyName  = "config.key"
)

// ParseAddr 解析 user@host:port 格式的字符串
func ParseAddr(input string) (string, string, uint16) {
	var userName, host string
	var port uint16
	if idx := strings.Index(input, ":"); idx != -1 {
		port = ParsePort(input[idx+1:])
		input = input[:idx]
	}
	if idx := strings.Index(input, "@"); idx != -1 {
		userName = strings.TrimSpace(input[:idx])
		input = input[idx+1:]
	}
	host = strings.TrimSpace(input)
	return userName, host, port
}

// ParsePort 解析端口字符串,输入为空或非法时返回 0
func ParsePort(input string) uint16 {
	if input == "" {
		return 0
	}
	port64, err := strconv.ParseUint(input, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port64)
}

func GetCurrentUser() string {
	currentUser, err := user.Current()
	if err != nil {
		return ""
	}
	return currentUser.Username
}

// GetConfigFilePath 返回配置文件和加密密钥文件的路径
func GetConfigFilePath() (configPath, keyPath string) {
	u, err := user.Current()
	if err != nil {
		return "", ""
	}
	return filepath.Join(u.HomeDir, ".dtool", ConfigFileName), filepath.Join(u.HomeDir, ".dtool", ConfigKeyName)
}

// ReadPasswordFromTerminal 从终端安全地读取密码
func ReadPasswordFromTerminal(prompt string) (string, error) {
	fmt.Print(prompt)
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println() // ReadPassword 不会打印换行符
	if err != nil {
		return "", err
	}
	return string(password), nil
}
