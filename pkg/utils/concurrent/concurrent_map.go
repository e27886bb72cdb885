package concurrent

import (
	"maps"
	"sync"

	"gopkg.in/yaml.v3"
)

// 默认分片数量,2 的幂可以让取模退化为位运算
const DefaultShardCount = 32

// Map 是一个分片读写锁保护的并发 Map
// K: 键的类型 (必须是可比较的)
// V: 值的类型 (任意)
type Map[K comparable, V any] struct {
	shards     []*shard[K, V]
	hashFunc   func(K) uint32
	shardCount uint32
}

type shard[K comparable, V any] struct {
	sync.RWMutex
	items map[K]V
}

// NewMap 创建一个新的并发 Map
// hashFunc 将 Key 映射为 uint32,决定分片位置
func NewMap[K comparable, V any](hashFunc func(K) uint32) *Map[K, V] {
	m := &Map[K, V]{
		shardCount: DefaultShardCount,
		hashFunc:   hashFunc,
	}
	m.shards = make([]*shard[K, V], m.shardCount)
	for i := range m.shardCount {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) getShard(key K) *shard[K, V] {
	return m.shards[m.hashFunc(key)%m.shardCount]
}

// Set 写入键值对
func (m *Map[K, V]) Set(key K, value V) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	s.items[key] = value
}

// Get 读取键值对
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.getShard(key)
	s.RLock()
	defer s.RUnlock()
	val, ok := s.items[key]
	return val, ok
}

// Remove 删除键值对
func (m *Map[K, V]) Remove(key K) {
	s := m.getShard(key)
	s.Lock()
	defer s.Unlock()
	delete(s.items, key)
}

// Keys 获取所有 Key 的快照
func (m *Map[K, V]) Keys() []K {
	keys := make([]K, 0)
	for i := range m.shardCount {
		s := m.shards[i]
		s.RLock()
		for k := range s.items {
			keys = append(keys, k)
		}
		s.RUnlock()
	}
	return keys
}

// IterCb 逐分片遍历,fn 返回 false 时提前结束
// 一次只锁一个分片,遍历期间其他分片仍可写入
func (m *Map[K, V]) IterCb(fn func(key K, v V) bool) {
	for i := range m.shardCount {
		s := m.shards[i]
		s.RLock()
		for k, v := range s.items {
			if !fn(k, v) {
				s.RUnlock()
				return
			}
		}
		s.RUnlock()
	}
}

// Clear 清空所有分片,直接替换底层 map 而不是逐个删除
func (m *Map[K, V]) Clear() {
	for i := range m.shardCount {
		s := m.shards[i]
		s.Lock()
		s.items = make(map[K]V)
		s.Unlock()
	}
}

// snapshot 将所有分片的数据复制到一个普通 map
func (m *Map[K, V]) snapshot() map[K]V {
	tmp := make(map[K]V)
	for i := range m.shardCount {
		s := m.shards[i]
		s.RLock()
		maps.Copy(tmp, s.items)
		s.RUnlock()
	}
	return tmp
}

// MarshalYAML 实现 yaml.Marshaler 接口
func (m *Map[K, V]) MarshalYAML() (interface{}, error) {
	return m.snapshot(), nil
}

// UnmarshalYAML 实现 yaml.Unmarshaler 接口
// 注意: m 必须已经由 NewMap 初始化
func (m *Map[K, V]) UnmarshalYAML(value *yaml.Node) error {
	tmp := make(map[K]V)
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	for k, v := range tmp {
		m.Set(k, v)
	}
	return nil
}
