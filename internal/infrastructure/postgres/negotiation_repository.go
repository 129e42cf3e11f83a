package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
)

const negotiationColumns = `n.id, n.creator_id, n.state, n.payload, n.posts_enabled, n.created_at, n.updated_at,
	ARRAY(SELECT nr.resource_id FROM negotiation_resources nr WHERE nr.negotiation_id = n.id ORDER BY nr.position)`

// NegotiationRepository implements negotiation.Repository.
type NegotiationRepository struct {
	pool *pgxpool.Pool
}

func NewNegotiationRepository(pool *pgxpool.Pool) *NegotiationRepository {
	return &NegotiationRepository{pool: pool}
}

func (r *NegotiationRepository) Create(ctx context.Context, n *negotiation.Negotiation) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO negotiations (id, creator_id, state, payload, posts_enabled, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
		`, n.ID, n.CreatorID, n.State, nullJSON(n.Payload), n.PostsEnabled, n.CreatedAt, n.UpdatedAt); err != nil {
			return err
		}
		return insertResources(ctx, tx, n.ID, n.ResourceIDs)
	})
}

func (r *NegotiationRepository) GetByID(ctx context.Context, id string) (*negotiation.Negotiation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+negotiationColumns+` FROM negotiations n WHERE n.id=$1`, id)
	n, err := scanNegotiation(row)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return n, nil
}

func (r *NegotiationRepository) List(ctx context.Context, filter negotiation.Filter, limit, offset int) ([]*negotiation.Negotiation, error) {
	query := `SELECT ` + negotiationColumns + ` FROM negotiations n`
	args := []interface{}{}
	idx := 1
	if filter.State != nil {
		query += " WHERE n.state=$" + itoa(idx)
		args = append(args, *filter.State)
		idx++
	}
	if filter.CreatorID != nil {
		query += addWhere(query) + " n.creator_id=$" + itoa(idx)
		args = append(args, *filter.CreatorID)
		idx++
	}
	if len(filter.ResourceIDs) > 0 {
		query += addWhere(query) + " EXISTS (SELECT 1 FROM negotiation_resources f WHERE f.negotiation_id = n.id AND f.resource_id = ANY($" + itoa(idx) + "))"
		args = append(args, filter.ResourceIDs)
		idx++
	}
	query += " ORDER BY n.created_at DESC, n.id ASC LIMIT $" + itoa(idx) + " OFFSET $" + itoa(idx+1)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*negotiation.Negotiation{}
	for rows.Next() {
		n, err := scanNegotiation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NegotiationRepository) UpdateState(ctx context.Context, id string, state negotiation.State, at time.Time) error {
	res, err := r.pool.Exec(ctx, `UPDATE negotiations SET state=$1, updated_at=$2 WHERE id=$3`, state, at, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return negotiation.NotFoundf("negotiation %s", id)
	}
	return nil
}

func (r *NegotiationRepository) AttachResources(ctx context.Context, id string, resourceIDs []string, at time.Time) error {
	return withTx(ctx, r.pool, func(tx pgx.Tx) error {
		res, err := tx.Exec(ctx, `UPDATE negotiations SET updated_at=$1 WHERE id=$2`, at, id)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			return negotiation.NotFoundf("negotiation %s", id)
		}
		return insertResources(ctx, tx, id, resourceIDs)
	})
}

func (r *NegotiationRepository) SetPostsEnabled(ctx context.Context, id string, enabled bool, at time.Time) error {
	res, err := r.pool.Exec(ctx, `UPDATE negotiations SET posts_enabled=$1, updated_at=$2 WHERE id=$3`, enabled, at, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return negotiation.NotFoundf("negotiation %s", id)
	}
	return nil
}

// Delete relies on ON DELETE CASCADE for attached resources and posts.
func (r *NegotiationRepository) Delete(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM negotiations WHERE id=$1`, id)
	return err
}

func insertResources(ctx context.Context, tx pgx.Tx, negotiationID string, resourceIDs []string) error {
	for _, resourceID := range resourceIDs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO negotiation_resources (negotiation_id, resource_id, position)
			VALUES ($1, $2, (SELECT COALESCE(MAX(position), 0) + 1 FROM negotiation_resources WHERE negotiation_id=$1))
			ON CONFLICT (negotiation_id, resource_id) DO NOTHING
		`, negotiationID, resourceID); err != nil {
			return err
		}
	}
	return nil
}

func scanNegotiation(row pgx.Row) (*negotiation.Negotiation, error) {
	var n negotiation.Negotiation
	var payload []byte
	if err := row.Scan(&n.ID, &n.CreatorID, &n.State, &payload, &n.PostsEnabled, &n.CreatedAt, &n.UpdatedAt, &n.ResourceIDs); err != nil {
		return nil, err
	}
	n.Payload = payload
	if n.ResourceIDs == nil {
		n.ResourceIDs = []string{}
	}
	return &n, nil
}

func nullJSON(data []byte) interface{} {
	if len(data) == 0 {
		return nil
	}
	return data
}

// PostRepository implements negotiation.PostRepository.
type PostRepository struct {
	pool *pgxpool.Pool
}

func NewPostRepository(pool *pgxpool.Pool) *PostRepository {
	return &PostRepository{pool: pool}
}

func (r *PostRepository) Create(ctx context.Context, post *negotiation.Post) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO posts (post_id, negotiation_id, resource_id, author_id, body, visibility, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, post.ID, post.NegotiationID, post.ResourceID, post.AuthorID, post.Body, post.Visibility, post.CreatedAt)
	return err
}

func (r *PostRepository) ListByNegotiation(ctx context.Context, negotiationID string) ([]*negotiation.Post, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT post_id, negotiation_id, resource_id, author_id, body, visibility, created_at
		FROM posts WHERE negotiation_id=$1 ORDER BY created_at ASC, id ASC
	`, negotiationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []*negotiation.Post{}
	for rows.Next() {
		var p negotiation.Post
		if err := rows.Scan(&p.ID, &p.NegotiationID, &p.ResourceID, &p.AuthorID, &p.Body, &p.Visibility, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
