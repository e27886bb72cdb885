package utils

import "sync"

// WorkerPool 控制并发任务的执行
type WorkerPool interface {
	Execute(task func())
	Wait()
}

type defaultWorkerPool struct {
	limit chan struct{}
	wg    sync.WaitGroup
}

func NewWorkerPool(maxConcurrent uint) WorkerPool {
	if maxConcurrent == 0 {
		maxConcurrent = 3
	}
	return &defaultWorkerPool{
		limit: make(chan struct{}, maxConcurrent),
	}
}

// Execute 提交一个任务到工作池,和sync.WaitGroup.Go()用法一致
func (wp *defaultWorkerPool) Execute(task func()) {
	wp.wg.Go(func() {
		wp.limit <- struct{}{}
		defer func() { <-wp.limit }()
		task()
	})
}

func (wp *defaultWorkerPool) Wait() {
	wp.wg.Wait()
}
