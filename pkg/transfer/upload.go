package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Upload 按清单上传全部文件和目录
// 单个文件失败只记录进报告,不中断其余文件; 只有清单本身无效或
// 上下文取消才返回 error
func (c *Client) Upload(ctx context.Context, manifest Manifest, progress ProgressCallback) (*UploadReport, error) {
	files, dirs, err := manifest.Partition()
	if err != nil {
		return nil, err
	}

	report := &UploadReport{}
	var mu sync.Mutex
	record := func(fr FileResult) {
		mu.Lock()
		report.Files = append(report.Files, fr)
		mu.Unlock()
	}

	// errgroup 只承载上下文取消,文件级失败全部进报告
	g, ctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, c.concurrentFiles)

	submit := func(local, remote string, mode os.FileMode) {
		sem <- struct{}{}
		g.Go(func() error {
			defer func() { <-sem }()
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := c.uploadFile(local, remote, mode, progress)
			record(FileResult{Local: local, Remote: remote, Bytes: n, Err: err})
			return nil
		})
	}

	for _, e := range files {
		info, err := os.Stat(e.Local)
		if err != nil {
			record(FileResult{Local: e.Local, Remote: e.Remote, Err: err})
			continue
		}
		if err := c.EnsureDirs(parentDir(e.Remote)); err != nil {
			record(FileResult{Local: e.Local, Remote: e.Remote, Err: err})
			continue
		}
		submit(e.Local, e.Remote, info.Mode())
	}

	for _, e := range dirs {
		if err := c.uploadDirectory(ctx, e.Local, e.Remote, submit, record); err != nil {
			return report, err
		}
	}

	if err := g.Wait(); err != nil {
		return report, err
	}
	return report, nil
}

// uploadDirectory 递归遍历本地目录,目录顺序创建,文件交给并发队列
func (c *Client) uploadDirectory(ctx context.Context, localDir, remoteDir string, submit func(string, string, os.FileMode), record func(FileResult)) error {
	if err := c.EnsureDirs(remoteDir); err != nil {
		return err
	}
	return filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		relPath, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		// SFTP 必须用 forward slash,ToSlash 处理 Windows 分隔符
		remoteDest := c.JoinPath(remoteDir, filepath.ToSlash(relPath))
		if info.IsDir() {
			if mkErr := c.EnsureDirs(remoteDest); mkErr != nil {
				record(FileResult{Local: path, Remote: remoteDest, Err: mkErr})
			}
			return nil
		}
		submit(path, remoteDest, info.Mode())
		return nil
	})
}

// uploadFile 传输单个文件,远程内容与本地逐字节一致
func (c *Client) uploadFile(localPath, remotePath string, mode os.FileMode, progress ProgressCallback) (int64, error) {
	srcFile, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer srcFile.Close()

	dstFile, err := c.fs.Create(remotePath)
	if err != nil {
		return 0, fmt.Errorf("create remote '%s': %w", remotePath, err)
	}
	defer dstFile.Close()

	var total int64
	buf := make([]byte, copyBufferSize)
	for {
		n, rerr := srcFile.Read(buf)
		if n > 0 {
			if _, werr := dstFile.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("write remote '%s': %w", remotePath, werr)
			}
			total += int64(n)
			if progress != nil {
				progress(n)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return total, rerr
		}
	}

	// 保留本地文件权限,失败不影响内容正确性
	_ = c.fs.Chmod(remotePath, mode)
	return total, nil
}

func parentDir(remote string) string {
	dir := filepath.ToSlash(filepath.Dir(remote))
	if dir == "." {
		return "/"
	}
	return dir
}
