package netsync

import (
	"math"
	"math/rand"
)

type packet[T any] struct {
	validAt float64
	payload T
}

// Channel 模拟网络：每条消息在 now+Lag±LagVariance 之后才可取出，按 Loss 概率丢弃。
// 取出顺序按可用时间，因此会乱序；同一时间按入队顺序
type Channel[T any] struct {
	Lag         float64 // 秒
	LagVariance float64 // 秒
	Loss        float64 // [0,1]

	rng   *rand.Rand
	queue []packet[T]
}

func NewChannel[T any](seed int64) *Channel[T] {
	return &Channel[T]{rng: rand.New(rand.NewSource(seed))}
}

// Push 投递一条消息；被丢弃时返回 false
func (ch *Channel[T]) Push(now float64, payload T) bool {
	if ch.Loss > 0 && ch.rng.Float64() < ch.Loss {
		return false
	}
	lag := ch.Lag
	if ch.LagVariance > 0 {
		lag += (ch.rng.Float64()*2 - 1) * ch.LagVariance
	}
	ch.queue = append(ch.queue, packet[T]{validAt: now + math.Max(0, lag), payload: payload})
	return true
}

// Fetch 取出最早可用的一条消息
func (ch *Channel[T]) Fetch(now float64) (T, bool) {
	best := -1
	for i, p := range ch.queue {
		if p.validAt > now {
			continue
		}
		if best < 0 || p.validAt < ch.queue[best].validAt {
			best = i
		}
	}
	if best < 0 {
		var zero T
		return zero, false
	}
	p := ch.queue[best]
	ch.queue = append(ch.queue[:best], ch.queue[best+1:]...)
	return p.payload, true
}

// Len 队列中尚未取出的消息数（包括还没到时间的）
func (ch *Channel[T]) Len() int { return len(ch.queue) }

func (ch *Channel[T]) Clear() { ch.queue = nil }

// Link 一条客户端与服务器之间的双向连接
type Link struct {
	Up   *Channel[MoveMessage] // 客户端 → 服务器
	Down *Channel[Replication] // 服务器 → 客户端，WebSocket 玩家为 nil
}

// NewLink 两个方向使用不同的随机种子
func NewLink(seed int64) *Link {
	return &Link{
		Up:   NewChannel[MoveMessage](seed),
		Down: NewChannel[Replication](seed + 1),
	}
}

// SetConditions 同时设置两个方向的延迟与丢包
func (l *Link) SetConditions(lag, variance, loss float64) {
	l.Up.Lag, l.Up.LagVariance, l.Up.Loss = lag, variance, loss
	if l.Down != nil {
		l.Down.Lag, l.Down.LagVariance, l.Down.Loss = lag, variance, loss
	}
}

func (l *Link) Clear() {
	l.Up.Clear()
	if l.Down != nil {
		l.Down.Clear()
	}
}
