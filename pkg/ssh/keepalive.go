package ssh

import (
	"time"

	"golang.org/x/crypto/ssh"
)

// StartKeepAlive 开启一个协程,定期向 SSH Server 发送心跳
// 心跳失败时关闭连接,让正在使用的 Session 立刻收到错误而不是挂死
// 多分钟的远程构建依赖这个机制保活
func StartKeepAlive(client *ssh.Client, interval time.Duration, fallback func(err error)) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			// "keepalive@openssh.com" 是 OpenSSH 标准的心跳请求类型
			_, _, err := client.SendRequest("keepalive@openssh.com", true, nil)
			if err != nil {
				client.Close()
				if fallback != nil {
					fallback(err)
				}
				return
			}
		}
	}()
}
