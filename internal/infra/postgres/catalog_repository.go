package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/mo"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

// CatalogRepository は catalog.Repository を実装する PostgreSQL リポジトリです
type CatalogRepository struct {
	pool *pgxpool.Pool
}

// NewCatalogRepository は新しい CatalogRepository を作成します
func NewCatalogRepository(pool *pgxpool.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// コンパイル時の型チェック
var (
	_ catalog.Repository        = (*CatalogRepository)(nil)
	_ vectorstore.ChannelLister = (*CatalogRepository)(nil)
)

// === Channel ===

const channelColumns = `id, url, name, enabled, videos_known, videos_indexed, created_at, updated_at`

func scanChannel(row pgx.Row) (*catalog.Channel, error) {
	var c catalog.Channel
	err := row.Scan(&c.ID, &c.URL, &c.Name, &c.Enabled, &c.VideosKnown, &c.VideosIndexed, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CatalogRepository) GetChannel(ctx context.Context, id string) (mo.Option[*catalog.Channel], error) {
	row := r.pool.QueryRow(ctx, `SELECT `+channelColumns+` FROM channels WHERE id = $1`, id)
	channel, err := scanChannel(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*catalog.Channel](), nil
		}
		return mo.None[*catalog.Channel](), fmt.Errorf("failed to get channel: %w", err)
	}
	return mo.Some(channel), nil
}

func (r *CatalogRepository) ListChannels(ctx context.Context, enabledOnly bool) ([]*catalog.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels ORDER BY created_at`
	if enabledOnly {
		query = `SELECT ` + channelColumns + ` FROM channels WHERE enabled ORDER BY created_at`
	}

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*catalog.Channel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan channel: %w", err)
		}
		channels = append(channels, channel)
	}
	return channels, rows.Err()
}

// ListEnabledChannelIDs は有効チャンネルのID一覧を返します
func (r *CatalogRepository) ListEnabledChannelIDs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT id FROM channels WHERE enabled ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled channels: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan channel id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CatalogRepository) UpsertChannel(ctx context.Context, channel *catalog.Channel) (*catalog.Channel, error) {
	// 再登録はメタデータのみ更新し、enabledとカウンタは保持する
	row := r.pool.QueryRow(ctx, `
		INSERT INTO channels (id, url, name, enabled)
		VALUES ($1, $2, $3, TRUE)
		ON CONFLICT (id) DO UPDATE SET
			url = EXCLUDED.url,
			name = EXCLUDED.name,
			updated_at = now()
		RETURNING `+channelColumns,
		channel.ID, channel.URL, channel.Name,
	)
	upserted, err := scanChannel(row)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert channel: %w", err)
	}
	return upserted, nil
}

func (r *CatalogRepository) SetChannelEnabled(ctx context.Context, id string, enabled bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE channels SET enabled = $2, updated_at = now() WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("failed to set channel enabled: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("channel not found: %s", id)
	}
	return nil
}

func (r *CatalogRepository) UpdateChannelCounters(ctx context.Context, id string, videosKnown, videosIndexed int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE channels SET videos_known = $2, videos_indexed = $3, updated_at = now() WHERE id = $1`,
		id, videosKnown, videosIndexed,
	)
	if err != nil {
		return fmt.Errorf("failed to update channel counters: %w", err)
	}
	return nil
}

func (r *CatalogRepository) DeleteChannel(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM channels WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	return nil
}

// === Video ===

const videoColumns = `id, channel_id, url, title, fingerprint, published_at, created_at, updated_at`

func scanVideo(row pgx.Row) (*catalog.Video, error) {
	var (
		v           catalog.Video
		publishedAt pgtype.Timestamptz
	)
	err := row.Scan(&v.ID, &v.ChannelID, &v.URL, &v.Title, &v.Fingerprint, &publishedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return nil, err
	}
	v.PublishedAt = PgtypeToTimePtr(publishedAt)
	return &v, nil
}

func (r *CatalogRepository) GetVideo(ctx context.Context, id string) (mo.Option[*catalog.Video], error) {
	row := r.pool.QueryRow(ctx, `SELECT `+videoColumns+` FROM videos WHERE id = $1`, id)
	video, err := scanVideo(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*catalog.Video](), nil
		}
		return mo.None[*catalog.Video](), fmt.Errorf("failed to get video: %w", err)
	}
	return mo.Some(video), nil
}

func (r *CatalogRepository) ListVideosByChannel(ctx context.Context, channelID string) ([]*catalog.Video, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+videoColumns+` FROM videos WHERE channel_id = $1 ORDER BY published_at DESC NULLS LAST, id`,
		channelID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list videos: %w", err)
	}
	defer rows.Close()

	var videos []*catalog.Video
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video: %w", err)
		}
		videos = append(videos, video)
	}
	return videos, rows.Err()
}

func (r *CatalogRepository) CreateVideoIfNotExists(ctx context.Context, video *catalog.Video) (*catalog.Video, error) {
	// 既知の動画は台帳の状態を保つため一切更新しない
	row := r.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO videos (id, channel_id, url, title, published_at)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO NOTHING
			RETURNING `+videoColumns+`
		)
		SELECT * FROM inserted
		UNION ALL
		SELECT `+videoColumns+` FROM videos WHERE id = $1
		LIMIT 1`,
		video.ID, video.ChannelID, video.URL, video.Title, TimePtrToPgtype(video.PublishedAt),
	)
	created, err := scanVideo(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create video: %w", err)
	}
	return created, nil
}

func (r *CatalogRepository) SetVideoFingerprint(ctx context.Context, videoID string, fingerprint string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE videos SET fingerprint = $2, updated_at = now() WHERE id = $1`,
		videoID, fingerprint,
	)
	if err != nil {
		return fmt.Errorf("failed to set video fingerprint: %w", err)
	}
	return nil
}

func (r *CatalogRepository) CountVideoPhases(ctx context.Context, channelID string) (catalog.PhaseCounts, error) {
	var counts catalog.PhaseCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(v.id),
			count(*) FILTER (WHERE d.status = 'done'),
			count(*) FILTER (WHERE e.status = 'done'),
			count(*) FILTER (WHERE i.status = 'done')
		FROM videos v
		LEFT JOIN video_phases d ON d.video_id = v.id AND d.phase = 'download'
		LEFT JOIN video_phases e ON e.video_id = v.id AND e.phase = 'enhance'
		LEFT JOIN video_phases i ON i.video_id = v.id AND i.phase = 'index'
		WHERE v.channel_id = $1`,
		channelID,
	).Scan(&counts.Known, &counts.Downloaded, &counts.Enhanced, &counts.Indexed)
	if err != nil {
		return catalog.PhaseCounts{}, fmt.Errorf("failed to count video phases: %w", err)
	}
	return counts, nil
}

func (r *CatalogRepository) DeleteVideosByChannel(ctx context.Context, channelID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("failed to delete videos: %w", err)
	}
	return nil
}

// === PhaseState ===

func (r *CatalogRepository) GetPhaseStates(ctx context.Context, videoID string) (catalog.PhaseMap, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT phase, status, fingerprint, failure_reason, last_attempt FROM video_phases WHERE video_id = $1`,
		videoID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get phase states: %w", err)
	}
	defer rows.Close()

	states := make(catalog.PhaseMap)
	for rows.Next() {
		var (
			phase         string
			state         catalog.PhaseState
			failureReason pgtype.Text
			lastAttempt   pgtype.Timestamptz
		)
		if err := rows.Scan(&phase, &state.Status, &state.Fingerprint, &failureReason, &lastAttempt); err != nil {
			return nil, fmt.Errorf("failed to scan phase state: %w", err)
		}
		state.FailureReason = PgtextToStringPtr(failureReason)
		state.LastAttempt = PgtypeToTimePtr(lastAttempt)
		states[catalog.Phase(phase)] = state
	}
	return states, rows.Err()
}

func (r *CatalogRepository) UpsertPhaseState(ctx context.Context, videoID string, phase catalog.Phase, state catalog.PhaseState) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO video_phases (video_id, phase, status, fingerprint, failure_reason, last_attempt)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (video_id, phase) DO UPDATE SET
			status = EXCLUDED.status,
			fingerprint = EXCLUDED.fingerprint,
			failure_reason = EXCLUDED.failure_reason,
			last_attempt = EXCLUDED.last_attempt`,
		videoID, string(phase), string(state.Status), state.Fingerprint,
		StringPtrToPgtext(state.FailureReason), TimePtrToPgtype(state.LastAttempt),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert phase state: %w", err)
	}
	return nil
}

// === 成果物 ===

func (r *CatalogRepository) SaveTranscript(ctx context.Context, transcript *catalog.Transcript) error {
	segments, err := SegmentsToJSON(transcript.Segments)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO transcripts (video_id, language, segments, fingerprint, fetched_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (video_id) DO UPDATE SET
			language = EXCLUDED.language,
			segments = EXCLUDED.segments,
			fingerprint = EXCLUDED.fingerprint,
			fetched_at = EXCLUDED.fetched_at`,
		transcript.VideoID, transcript.Language, segments, transcript.Fingerprint, transcript.FetchedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetTranscript(ctx context.Context, videoID string) (mo.Option[*catalog.Transcript], error) {
	var (
		transcript = catalog.Transcript{VideoID: videoID}
		segments   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT language, segments, fingerprint, fetched_at FROM transcripts WHERE video_id = $1`,
		videoID,
	).Scan(&transcript.Language, &segments, &transcript.Fingerprint, &transcript.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*catalog.Transcript](), nil
		}
		return mo.None[*catalog.Transcript](), fmt.Errorf("failed to get transcript: %w", err)
	}

	if transcript.Segments, err = JSONToSegments(segments); err != nil {
		return mo.None[*catalog.Transcript](), err
	}
	return mo.Some(&transcript), nil
}

func (r *CatalogRepository) SaveEnhancedTranscript(ctx context.Context, transcript *catalog.EnhancedTranscript) error {
	segments, err := SegmentsToJSON(transcript.Segments)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO enhanced_transcripts (video_id, segments, model, fingerprint, enhanced_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (video_id) DO UPDATE SET
			segments = EXCLUDED.segments,
			model = EXCLUDED.model,
			fingerprint = EXCLUDED.fingerprint,
			enhanced_at = EXCLUDED.enhanced_at`,
		transcript.VideoID, segments, transcript.Model, transcript.Fingerprint, transcript.EnhancedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save enhanced transcript: %w", err)
	}
	return nil
}

func (r *CatalogRepository) GetEnhancedTranscript(ctx context.Context, videoID string) (mo.Option[*catalog.EnhancedTranscript], error) {
	var (
		transcript = catalog.EnhancedTranscript{VideoID: videoID}
		segments   []byte
	)
	err := r.pool.QueryRow(ctx,
		`SELECT segments, model, fingerprint, enhanced_at FROM enhanced_transcripts WHERE video_id = $1`,
		videoID,
	).Scan(&segments, &transcript.Model, &transcript.Fingerprint, &transcript.EnhancedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*catalog.EnhancedTranscript](), nil
		}
		return mo.None[*catalog.EnhancedTranscript](), fmt.Errorf("failed to get enhanced transcript: %w", err)
	}

	if transcript.Segments, err = JSONToSegments(segments); err != nil {
		return mo.None[*catalog.EnhancedTranscript](), err
	}
	return mo.Some(&transcript), nil
}

func (r *CatalogRepository) DeleteArtifactsByChannel(ctx context.Context, channelID string) error {
	if _, err := r.pool.Exec(ctx, `
		DELETE FROM transcripts WHERE video_id IN (SELECT id FROM videos WHERE channel_id = $1)`,
		channelID,
	); err != nil {
		return fmt.Errorf("failed to delete transcripts: %w", err)
	}
	if _, err := r.pool.Exec(ctx, `
		DELETE FROM enhanced_transcripts WHERE video_id IN (SELECT id FROM videos WHERE channel_id = $1)`,
		channelID,
	); err != nil {
		return fmt.Errorf("failed to delete enhanced transcripts: %w", err)
	}
	return nil
}
