//go:build !ci

package sound

import (
	"fmt"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/generators"
	"github.com/gopxl/beep/v2/speaker"
)

const sampleRate = beep.SampleRate(44100)

// Notifier 新消息提示音
type Notifier struct {
	enabled bool
}

// NewNotifier 创建提示音管理器，Init 前静音
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Init 初始化音频设备
func (n *Notifier) Init() error {
	// Init speaker with smaller buffer for lower latency
	if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	n.enabled = true
	return nil
}

// Chime 播放一声短提示音，音频不可用时静默
func (n *Notifier) Chime() {
	if !n.enabled {
		return
	}

	tone, err := generators.SineTone(sampleRate, 880)
	if err != nil {
		return
	}
	speaker.Play(beep.Take(sampleRate.N(120*time.Millisecond), tone))
}

// Close 关闭音频设备
func (n *Notifier) Close() {
	if n.enabled {
		speaker.Close()
	}
}
