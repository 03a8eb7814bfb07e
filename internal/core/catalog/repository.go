package catalog

import (
	"context"

	"github.com/samber/mo"
)

// Repository はカタログ（レジストリ＋台帳）の全データアクセスを統合するインターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	// Channel
	GetChannel(ctx context.Context, id string) (mo.Option[*Channel], error)
	ListChannels(ctx context.Context, enabledOnly bool) ([]*Channel, error)
	UpsertChannel(ctx context.Context, channel *Channel) (*Channel, error)
	SetChannelEnabled(ctx context.Context, id string, enabled bool) error
	UpdateChannelCounters(ctx context.Context, id string, videosKnown, videosIndexed int) error
	DeleteChannel(ctx context.Context, id string) error

	// Video
	GetVideo(ctx context.Context, id string) (mo.Option[*Video], error)
	ListVideosByChannel(ctx context.Context, channelID string) ([]*Video, error)
	CreateVideoIfNotExists(ctx context.Context, video *Video) (*Video, error)
	SetVideoFingerprint(ctx context.Context, videoID string, fingerprint string) error
	CountVideoPhases(ctx context.Context, channelID string) (PhaseCounts, error)
	DeleteVideosByChannel(ctx context.Context, channelID string) error

	// PhaseState（書き込みは動画×フェーズの1行単位でアトミック）
	GetPhaseStates(ctx context.Context, videoID string) (PhaseMap, error)
	UpsertPhaseState(ctx context.Context, videoID string, phase Phase, state PhaseState) error

	// 成果物
	SaveTranscript(ctx context.Context, transcript *Transcript) error
	GetTranscript(ctx context.Context, videoID string) (mo.Option[*Transcript], error)
	SaveEnhancedTranscript(ctx context.Context, transcript *EnhancedTranscript) error
	GetEnhancedTranscript(ctx context.Context, videoID string) (mo.Option[*EnhancedTranscript], error)
	DeleteArtifactsByChannel(ctx context.Context, channelID string) error
}
