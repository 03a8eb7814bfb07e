package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/samber/mo"

	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

// VectorRepository は vectorstore.Repository を実装する PostgreSQL リポジトリです。
// チャンネルごとのパーティションはchannel_idで分離された行集合として保持します。
type VectorRepository struct {
	pool *pgxpool.Pool
}

// NewVectorRepository は新しい VectorRepository を作成します
func NewVectorRepository(pool *pgxpool.Pool) *VectorRepository {
	return &VectorRepository{pool: pool}
}

// コンパイル時の型チェック
var _ vectorstore.Repository = (*VectorRepository)(nil)

const partitionColumns = `channel_id, chunk_size, chunk_overlap, chunk_count, built_at, updated_at`

func scanPartition(row pgx.Row) (*vectorstore.Partition, error) {
	var p vectorstore.Partition
	err := row.Scan(&p.ChannelID, &p.ChunkSize, &p.ChunkOverlap, &p.ChunkCount, &p.BuiltAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *VectorRepository) GetPartition(ctx context.Context, channelID string) (mo.Option[*vectorstore.Partition], error) {
	row := r.pool.QueryRow(ctx, `SELECT `+partitionColumns+` FROM vector_partitions WHERE channel_id = $1`, channelID)
	partition, err := scanPartition(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return mo.None[*vectorstore.Partition](), nil
		}
		return mo.None[*vectorstore.Partition](), fmt.Errorf("failed to get partition: %w", err)
	}
	return mo.Some(partition), nil
}

func (r *VectorRepository) ListPartitions(ctx context.Context) ([]*vectorstore.Partition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+partitionColumns+` FROM vector_partitions ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}
	defer rows.Close()

	var partitions []*vectorstore.Partition
	for rows.Next() {
		partition, err := scanPartition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan partition: %w", err)
		}
		partitions = append(partitions, partition)
	}
	return partitions, rows.Err()
}

func (r *VectorRepository) CreatePartition(ctx context.Context, channelID string, cfg vectorstore.ChunkConfig) (*vectorstore.Partition, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO vector_partitions (channel_id, chunk_size, chunk_overlap)
		VALUES ($1, $2, $3)
		ON CONFLICT (channel_id) DO UPDATE SET updated_at = now()
		RETURNING `+partitionColumns,
		channelID, cfg.Size, cfg.Overlap,
	)
	partition, err := scanPartition(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create partition: %w", err)
	}
	return partition, nil
}

func (r *VectorRepository) UpdatePartitionCount(ctx context.Context, channelID string, delta int) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE vector_partitions
		SET chunk_count = greatest(chunk_count + $2, 0), updated_at = now()
		WHERE channel_id = $1`,
		channelID, delta,
	)
	if err != nil {
		return fmt.Errorf("failed to update partition count: %w", err)
	}
	return nil
}

func (r *VectorRepository) DropPartition(ctx context.Context, channelID string) error {
	// chunksはON DELETE CASCADEで一緒に消える
	if _, err := r.pool.Exec(ctx, `DELETE FROM vector_partitions WHERE channel_id = $1`, channelID); err != nil {
		return fmt.Errorf("failed to drop partition: %w", err)
	}
	return nil
}

func (r *VectorRepository) InsertChunks(ctx context.Context, chunks []*vectorstore.Chunk, vectors [][]float32, model string) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	batch := &pgx.Batch{}
	for i, chunk := range chunks {
		batch.Queue(`
			INSERT INTO chunks (id, channel_id, video_id, ordinal, start_seconds, end_seconds, content, token_count, embedding, embedding_model)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			chunk.ID, chunk.ChannelID, chunk.VideoID, chunk.Ordinal,
			chunk.StartSeconds, chunk.EndSeconds, chunk.Content, chunk.TokenCount,
			pgvector.NewVector(vectors[i]), model,
		)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range chunks {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}
	return nil
}

func (r *VectorRepository) DeleteChunksByVideo(ctx context.Context, channelID, videoID string) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM chunks WHERE channel_id = $1 AND video_id = $2`, channelID, videoID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *VectorRepository) SearchPartition(ctx context.Context, channelID string, vector []float32, limit int) ([]*vectorstore.Hit, error) {
	queryVector := pgvector.NewVector(vector)
	rows, err := r.pool.Query(ctx, `
		SELECT id, channel_id, video_id, start_seconds, end_seconds, content,
		       1 - (embedding <=> $2) AS score
		FROM chunks
		WHERE channel_id = $1
		ORDER BY embedding <=> $2
		LIMIT $3`,
		channelID, queryVector, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search partition: %w", err)
	}
	defer rows.Close()

	var hits []*vectorstore.Hit
	for rows.Next() {
		var hit vectorstore.Hit
		if err := rows.Scan(&hit.ChunkID, &hit.ChannelID, &hit.VideoID, &hit.StartSeconds, &hit.EndSeconds, &hit.Content, &hit.Score); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		hits = append(hits, &hit)
	}
	return hits, rows.Err()
}
