package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// DefaultEmbeddingDimension は次元が未指定のときに使うベクトル次元
const DefaultEmbeddingDimension = 1536

// EnsureSchema はテーブルとpgvector拡張を冪等に作成します。
// chunks.embedding の次元は埋め込みモデルの設定で決まるため、
// 既存テーブルの次元が設定と食い違う場合はエラーを返します。
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		dimension = DefaultEmbeddingDimension
	}

	if _, err := pool.Exec(ctx, fmt.Sprintf(schemaSQL, dimension)); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}

	// pgvectorは次元をtypmodに保持する
	var typmod int
	row := pool.QueryRow(ctx, `
		SELECT atttypmod
		FROM pg_attribute
		WHERE attrelid = 'chunks'::regclass AND attname = 'embedding'`)
	if err := row.Scan(&typmod); err != nil {
		return fmt.Errorf("failed to inspect chunks.embedding: %w", err)
	}
	if typmod != dimension {
		return fmt.Errorf(
			"chunks.embedding has dimension %d but OPENAI_EMBEDDING_DIMENSION is %d: recreate the chunks table or align the setting",
			typmod, dimension,
		)
	}
	return nil
}
