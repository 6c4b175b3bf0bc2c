package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/vidsum/orchestrator/internal/domain/entity"
)

// ChapterRepository implements repository.ChapterStore on PostgreSQL.
type ChapterRepository struct {
	client *Client
	tx     *TxManager
}

// NewChapterRepository creates a chapter repository bound to client.
func NewChapterRepository(client *Client) *ChapterRepository {
	return &ChapterRepository{client: client, tx: NewTxManager(client)}
}

// FindByVid returns vid's chapters ordered by start ascending. limit<=0 means no limit.
func (r *ChapterRepository) FindByVid(ctx context.Context, vid string, limit int) ([]*entity.Chapter, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.FindByVid")
	defer span.End()

	q := getQuerier(ctx, r.client.sqlDB)

	query := `
		SELECT cid, vid, trigger, slicer, style, start, lang, chapter, summary, refined, create_ts, update_ts
		FROM chapter
		WHERE vid = $1
		ORDER BY start ASC
	`
	args := []interface{}{vid}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chapters for %s: %w", vid, err)
	}
	defer rows.Close()

	var chapters []*entity.Chapter
	for rows.Next() {
		chapter, err := scanChapter(rows)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		chapters = append(chapters, chapter)
	}
	return chapters, rows.Err()
}

// Replace atomically deletes vid's chapters and inserts the given set.
func (r *ChapterRepository) Replace(ctx context.Context, vid string, chapters []*entity.Chapter) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.Replace")
	defer span.End()

	err := r.tx.WithTransaction(ctx, func(ctx context.Context) error {
		q := getQuerier(ctx, r.client.sqlDB)

		if _, err := q.ExecContext(ctx, `DELETE FROM chapter WHERE vid = $1`, vid); err != nil {
			return fmt.Errorf("failed to delete existing chapters for %s: %w", vid, err)
		}

		const insert = `
			INSERT INTO chapter (cid, vid, trigger, slicer, style, start, lang, chapter, summary, refined, create_ts, update_ts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`
		for _, c := range chapters {
			_, err := q.ExecContext(ctx, insert,
				c.Cid, c.Vid, c.Trigger, c.Slicer, c.Style, c.Start, c.Lang, c.Title, c.Summary, c.Refined, c.CreatedAt, c.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("failed to insert chapter %s: %w", c.Cid, err)
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to replace chapters for %s: %w", vid, err)
	}
	return nil
}

// DeleteByVid deletes all chapters for vid.
func (r *ChapterRepository) DeleteByVid(ctx context.Context, vid string) error {
	ctx, span := tracer.Start(ctx, "postgres.ChapterRepository.DeleteByVid")
	defer span.End()

	q := getQuerier(ctx, r.client.sqlDB)

	_, err := q.ExecContext(ctx, `DELETE FROM chapter WHERE vid = $1`, vid)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chapters for %s: %w", vid, err)
	}
	return nil
}

func scanChapter(rows *sql.Rows) (*entity.Chapter, error) {
	var c entity.Chapter
	var trigger, lang sql.NullString
	err := rows.Scan(
		&c.Cid, &c.Vid, &trigger, &c.Slicer, &c.Style, &c.Start, &lang, &c.Title,
		&c.Summary, &c.Refined, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan chapter row: %w", err)
	}
	c.Trigger = trigger.String
	c.Lang = lang.String
	return &c, nil
}
