package chatsync

import "time"

// 既定のポーリング間隔。
const (
	DefaultForegroundDelay = 2 * time.Second
	DefaultBackgroundDelay = 15 * time.Second
	DefaultIdleDelay       = 10 * time.Second
	DefaultIdleThreshold   = 10
)

// DelayPolicy は表示状態と空振り回数から次回取得までの待機時間を決める。
type DelayPolicy struct {
	// Foreground は表示中の待機時間。
	Foreground time.Duration
	// Background は非表示中の待機時間。
	Background time.Duration
	// Idle は表示中に空振りがIdleThresholdを超えた場合の待機時間。
	Idle time.Duration
	// IdleThreshold は待機時間をIdleに切り替える連続空振り回数。
	IdleThreshold int
}

// DefaultDelayPolicy は既定のDelayPolicyを返す。
func DefaultDelayPolicy() DelayPolicy {
	return DelayPolicy{
		Foreground:    DefaultForegroundDelay,
		Background:    DefaultBackgroundDelay,
		Idle:          DefaultIdleDelay,
		IdleThreshold: DefaultIdleThreshold,
	}
}

// Normalize は未設定の値を既定値で補い、Foreground <= Background と Idle >= Foreground を保証する。
func (p DelayPolicy) Normalize() DelayPolicy {
	if p.Foreground <= 0 {
		p.Foreground = DefaultForegroundDelay
	}
	if p.Background <= 0 {
		p.Background = DefaultBackgroundDelay
	}
	if p.Idle <= 0 {
		p.Idle = DefaultIdleDelay
	}
	if p.IdleThreshold <= 0 {
		p.IdleThreshold = DefaultIdleThreshold
	}
	if p.Background < p.Foreground {
		p.Background = p.Foreground
	}
	if p.Idle < p.Foreground {
		p.Idle = p.Foreground
	}
	return p
}

// Delay は次回取得までの待機時間を返す。
func (p DelayPolicy) Delay(visible bool, idle int) time.Duration {
	if !visible {
		return p.Background
	}
	if idle > p.IdleThreshold {
		return p.Idle
	}
	return p.Foreground
}
