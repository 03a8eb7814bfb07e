package catalog

import (
	"time"
)

// === Catalog集約: Channel（Registry） + Video + PhaseState（Ledger） ===

// Channel は登録済みYouTubeチャンネルを表します
type Channel struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Name          string    `json:"name"`
	Enabled       bool      `json:"enabled"`
	VideosKnown   int       `json:"videosKnown"`
	VideosIndexed int       `json:"videosIndexed"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Video は台帳に記録された動画を表します
type Video struct {
	ID        string `json:"id"`
	ChannelID string `json:"channelID"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	// Fingerprint は取得済みトランスクリプト内容のフィンガープリント。
	// 未取得の間は空文字列。
	Fingerprint string     `json:"fingerprint"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Phase は処理フェーズを表します
type Phase string

const (
	PhaseDownload Phase = "download"
	PhaseEnhance  Phase = "enhance"
	PhaseIndex    Phase = "index"
)

// Phases は依存順のフェーズ一覧です
var Phases = []Phase{PhaseDownload, PhaseEnhance, PhaseIndex}

// Upstream は直前のフェーズを返します。downloadには上流がありません。
func (p Phase) Upstream() (Phase, bool) {
	switch p {
	case PhaseEnhance:
		return PhaseDownload, true
	case PhaseIndex:
		return PhaseEnhance, true
	}
	return "", false
}

// PhaseStatus はフェーズの処理状態を表します
type PhaseStatus string

const (
	StatusNotStarted PhaseStatus = "not_started"
	StatusDone       PhaseStatus = "done"
	StatusFailed     PhaseStatus = "failed"
)

// PhaseState は1フェーズ分の台帳エントリを表します
type PhaseState struct {
	Status PhaseStatus `json:"status"`
	// Fingerprint は最後に成功した実行時の内容フィンガープリント
	Fingerprint   string     `json:"fingerprint"`
	FailureReason *string    `json:"failureReason,omitempty"`
	LastAttempt   *time.Time `json:"lastAttempt,omitempty"`
}

// PhaseMap は動画1件分のフェーズ別状態です。
// 未記録のフェーズは StatusNotStarted として扱います。
type PhaseMap map[Phase]PhaseState

// Get は記録済みの状態、なければNOT_STARTEDを返します
func (m PhaseMap) Get(phase Phase) PhaseState {
	if state, ok := m[phase]; ok {
		return state
	}
	return PhaseState{Status: StatusNotStarted}
}

// Segment はタイムコード付きトランスクリプトの1区間を表します
type Segment struct {
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
	Text         string  `json:"text"`
}

// Transcript はフェーズ1の成果物（生の字幕）を表します
type Transcript struct {
	VideoID     string    `json:"videoID"`
	Language    string    `json:"language"`
	Segments    []Segment `json:"segments"`
	Fingerprint string    `json:"fingerprint"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// EnhancedTranscript はフェーズ2の成果物（補正済み字幕）を表します
type EnhancedTranscript struct {
	VideoID     string    `json:"videoID"`
	Segments    []Segment `json:"segments"`
	Model       string    `json:"model"`
	Fingerprint string    `json:"fingerprint"`
	EnhancedAt  time.Time `json:"enhancedAt"`
}

// ChannelStatus はステータス表示用のチャンネル別スナップショットです
type ChannelStatus struct {
	Channel Channel     `json:"channel"`
	Counts  PhaseCounts `json:"counts"`
}

// PhaseCounts はチャンネル配下の動画のフェーズ別DONE件数です
type PhaseCounts struct {
	Known      int `json:"known"`
	Downloaded int `json:"downloaded"`
	Enhanced   int `json:"enhanced"`
	Indexed    int `json:"indexed"`
}

// Stats はレジストリ全体の集計を表します
type Stats struct {
	TotalChannels    int        `json:"totalChannels"`
	EnabledChannels  int        `json:"enabledChannels"`
	DisabledChannels int        `json:"disabledChannels"`
	TotalVideos      int        `json:"totalVideos"`
	LastUpdated      *time.Time `json:"lastUpdated,omitempty"`
}
