// Package catalogtest はテスト用のインメモリRepository実装を提供します
package catalogtest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/tubeseek/internal/core/catalog"
)

// Repository はcatalog.Repositoryのインメモリ実装です
type Repository struct {
	mu sync.Mutex

	channels    map[string]*catalog.Channel
	videos      map[string]*catalog.Video
	phases      map[string]catalog.PhaseMap
	transcripts map[string]*catalog.Transcript
	enhanced    map[string]*catalog.EnhancedTranscript
}

// NewRepository は空のインメモリリポジトリを作成します
func NewRepository() *Repository {
	return &Repository{
		channels:    make(map[string]*catalog.Channel),
		videos:      make(map[string]*catalog.Video),
		phases:      make(map[string]catalog.PhaseMap),
		transcripts: make(map[string]*catalog.Transcript),
		enhanced:    make(map[string]*catalog.EnhancedTranscript),
	}
}

var _ catalog.Repository = (*Repository)(nil)

func (r *Repository) GetChannel(ctx context.Context, id string) (mo.Option[*catalog.Channel], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel, ok := r.channels[id]; ok {
		copied := *channel
		return mo.Some(&copied), nil
	}
	return mo.None[*catalog.Channel](), nil
}

func (r *Repository) ListChannels(ctx context.Context, enabledOnly bool) ([]*catalog.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var channels []*catalog.Channel
	for _, channel := range r.channels {
		if enabledOnly && !channel.Enabled {
			continue
		}
		copied := *channel
		channels = append(channels, &copied)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].ID < channels[j].ID })
	return channels, nil
}

func (r *Repository) UpsertChannel(ctx context.Context, channel *catalog.Channel) (*catalog.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if existing, ok := r.channels[channel.ID]; ok {
		// 再登録は表示メタデータのみ更新し、カウンタと有効フラグは維持する
		existing.URL = channel.URL
		existing.Name = channel.Name
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}
	created := *channel
	created.CreatedAt = now
	created.UpdatedAt = now
	r.channels[channel.ID] = &created
	copied := created
	return &copied, nil
}

func (r *Repository) SetChannelEnabled(ctx context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel, ok := r.channels[id]; ok {
		channel.Enabled = enabled
		channel.UpdatedAt = time.Now()
	}
	return nil
}

func (r *Repository) UpdateChannelCounters(ctx context.Context, id string, videosKnown, videosIndexed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if channel, ok := r.channels[id]; ok {
		channel.VideosKnown = videosKnown
		channel.VideosIndexed = videosIndexed
		channel.UpdatedAt = time.Now()
	}
	return nil
}

func (r *Repository) DeleteChannel(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.channels, id)
	return nil
}

func (r *Repository) GetVideo(ctx context.Context, id string) (mo.Option[*catalog.Video], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if video, ok := r.videos[id]; ok {
		copied := *video
		return mo.Some(&copied), nil
	}
	return mo.None[*catalog.Video](), nil
}

func (r *Repository) ListVideosByChannel(ctx context.Context, channelID string) ([]*catalog.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var videos []*catalog.Video
	for _, video := range r.videos {
		if video.ChannelID == channelID {
			copied := *video
			videos = append(videos, &copied)
		}
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].ID < videos[j].ID })
	return videos, nil
}

func (r *Repository) CreateVideoIfNotExists(ctx context.Context, video *catalog.Video) (*catalog.Video, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.videos[video.ID]; ok {
		copied := *existing
		return &copied, nil
	}
	now := time.Now()
	created := *video
	created.CreatedAt = now
	created.UpdatedAt = now
	r.videos[video.ID] = &created
	copied := created
	return &copied, nil
}

func (r *Repository) SetVideoFingerprint(ctx context.Context, videoID string, fingerprint string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if video, ok := r.videos[videoID]; ok {
		video.Fingerprint = fingerprint
		video.UpdatedAt = time.Now()
	}
	return nil
}

func (r *Repository) CountVideoPhases(ctx context.Context, channelID string) (catalog.PhaseCounts, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := catalog.PhaseCounts{}
	for _, video := range r.videos {
		if video.ChannelID != channelID {
			continue
		}
		counts.Known++
		states := r.phases[video.ID]
		if states.Get(catalog.PhaseDownload).Status == catalog.StatusDone {
			counts.Downloaded++
		}
		if states.Get(catalog.PhaseEnhance).Status == catalog.StatusDone {
			counts.Enhanced++
		}
		if states.Get(catalog.PhaseIndex).Status == catalog.StatusDone {
			counts.Indexed++
		}
	}
	return counts, nil
}

func (r *Repository) DeleteVideosByChannel(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, video := range r.videos {
		if video.ChannelID == channelID {
			delete(r.videos, id)
			delete(r.phases, id)
		}
	}
	return nil
}

func (r *Repository) GetPhaseStates(ctx context.Context, videoID string) (catalog.PhaseMap, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make(catalog.PhaseMap)
	for phase, state := range r.phases[videoID] {
		states[phase] = state
	}
	return states, nil
}

func (r *Repository) UpsertPhaseState(ctx context.Context, videoID string, phase catalog.Phase, state catalog.PhaseState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.phases[videoID] == nil {
		r.phases[videoID] = make(catalog.PhaseMap)
	}
	r.phases[videoID][phase] = state
	return nil
}

func (r *Repository) DeleteArtifactsByChannel(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, video := range r.videos {
		if video.ChannelID == channelID {
			delete(r.transcripts, id)
			delete(r.enhanced, id)
		}
	}
	return nil
}

func (r *Repository) SaveTranscript(ctx context.Context, transcript *catalog.Transcript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *transcript
	r.transcripts[transcript.VideoID] = &copied
	return nil
}

func (r *Repository) GetTranscript(ctx context.Context, videoID string) (mo.Option[*catalog.Transcript], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if transcript, ok := r.transcripts[videoID]; ok {
		copied := *transcript
		return mo.Some(&copied), nil
	}
	return mo.None[*catalog.Transcript](), nil
}

func (r *Repository) SaveEnhancedTranscript(ctx context.Context, transcript *catalog.EnhancedTranscript) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *transcript
	r.enhanced[transcript.VideoID] = &copied
	return nil
}

func (r *Repository) GetEnhancedTranscript(ctx context.Context, videoID string) (mo.Option[*catalog.EnhancedTranscript], error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if transcript, ok := r.enhanced[videoID]; ok {
		copied := *transcript
		return mo.Some(&copied), nil
	}
	return mo.None[*catalog.EnhancedTranscript](), nil
}
