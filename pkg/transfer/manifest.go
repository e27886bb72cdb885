package transfer

import (
	"fmt"
	"os"
)

// Entry 描述一条本地路径到远程路径的传输项
type Entry struct {
	Local  string
	Remote string
}

// Manifest 是一次上传的全部传输项
// 目录项在传输阶段递归展开,每个文件至多传输一次
type Manifest []Entry

// Partition 按本地路径类型把清单拆分为文件项和目录项
// 本地路径不存在视为错误
func (m Manifest) Partition() (files []Entry, dirs []Entry, err error) {
	for _, e := range m {
		info, statErr := os.Stat(e.Local)
		if statErr != nil {
			return nil, nil, fmt.Errorf("stat local path '%s': %w", e.Local, statErr)
		}
		if info.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}
	return files, dirs, nil
}

// FileResult 记录单个文件的传输结果,Err 为 nil 表示成功
type FileResult struct {
	Local  string
	Remote string
	Bytes  int64
	Err    error
}

// UploadReport 聚合整次上传的逐文件结果
// 单个文件失败不会中断其余文件,调用方必须检查报告而不是布尔值
type UploadReport struct {
	Files []FileResult
}

// Ok 表示全部文件传输成功
func (r *UploadReport) Ok() bool {
	return len(r.Failed()) == 0
}

// Failed 返回失败的文件结果
func (r *UploadReport) Failed() []FileResult {
	var failed []FileResult
	for _, f := range r.Files {
		if f.Err != nil {
			failed = append(failed, f)
		}
	}
	return failed
}

// Summary 生成一行人读摘要
func (r *UploadReport) Summary() string {
	return fmt.Sprintf("%d/%d files transferred", len(r.Files)-len(r.Failed()), len(r.Files))
}
