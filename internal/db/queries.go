package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/bookmark-lens/internal/bookmark"
	"github.com/hpungsan/bookmark-lens/internal/errors"
)

// Store is the metadata store: bookmark rows keyed by ID.
// It owns the *sql.DB handle and closes it on Close.
type Store struct {
	db *sql.DB
}

// NewStore wraps an initialized database (see Init).
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const selectColumns = `
	SELECT id, url, domain, title, content_text, user_note, tags_json,
		summary_short, topic, created_at, updated_at
	FROM bookmarks
`

// Insert stores a new bookmark row.
func (s *Store) Insert(ctx context.Context, b *bookmark.Bookmark) error {
	tagsJSON, err := toTagsJSON(b.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		INSERT INTO bookmarks (
			id, url, domain, title, content_text, user_note, tags_json,
			summary_short, topic, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		b.ID, b.URL, b.Domain, b.Title, toNullString(&b.ContentText), b.UserNote, tagsJSON,
		toNullString(b.SummaryShort), toNullString(b.Topic), b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	return nil
}

// GetByID retrieves a bookmark by its ULID.
func (s *Store) GetByID(ctx context.Context, id string) (*bookmark.Bookmark, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return b, nil
}

// GetByIDs hydrates many bookmarks at once. Missing IDs are absent from the map.
func (s *Store) GetByIDs(ctx context.Context, ids []string) (map[string]*bookmark.Bookmark, error) {
	result := make(map[string]*bookmark.Bookmark, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, selectColumns+" WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		result[b.ID] = b
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}

	return result, nil
}

// FindByURL returns the most recently created bookmark with exactly this URL.
func (s *Store) FindByURL(ctx context.Context, url string) (*bookmark.Bookmark, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE url = ? ORDER BY created_at DESC, id DESC LIMIT 1", url)
	b, err := scanBookmark(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(url)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return b, nil
}

// Update overwrites every mutable field of an existing row, including updated_at
// exactly as given, so a caller can also use it to restore a snapshot.
// Does NOT change: id, url, domain, created_at.
func (s *Store) Update(ctx context.Context, b *bookmark.Bookmark) error {
	tagsJSON, err := toTagsJSON(b.Tags)
	if err != nil {
		return errors.NewInternal(err)
	}

	query := `
		UPDATE bookmarks
		SET title = ?, content_text = ?, user_note = ?, tags_json = ?,
			summary_short = ?, topic = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		b.Title, toNullString(&b.ContentText), b.UserNote, tagsJSON,
		toNullString(b.SummaryShort), toNullString(b.Topic), b.UpdatedAt,
		b.ID,
	)
	if err != nil {
		return errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFound(b.ID)
	}

	return nil
}

// Delete removes a bookmark row. Returns false (no error) if it did not exist.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}

	return rowsAffected > 0, nil
}

// List returns bookmarks matching the filter, newest first, plus the total match count.
func (s *Store) List(ctx context.Context, f bookmark.Filter, limit, offset int) ([]*bookmark.Bookmark, int, error) {
	where, args := filterClause(f)

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookmarks"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	query := selectColumns + where + " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	items := make([]*bookmark.Bookmark, 0)
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		items = append(items, b)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	return items, total, nil
}

// ListIDs returns every bookmark ID.
func (s *Store) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM bookmarks ORDER BY id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewInternal(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return ids, nil
}

// filterClause mirrors bookmark.Filter.Match in SQL.
func filterClause(f bookmark.Filter) (string, []any) {
	var conds []string
	var args []any

	if f.Domain != "" {
		conds = append(conds, "domain = ?")
		args = append(args, f.Domain)
	}
	if f.Since != nil {
		conds = append(conds, "created_at >= ?")
		args = append(args, *f.Since)
	}
	if f.Until != nil {
		conds = append(conds, "created_at <= ?")
		args = append(args, *f.Until)
	}
	for _, tag := range f.Tags {
		conds = append(conds, "EXISTS (SELECT 1 FROM json_each(bookmarks.tags_json) WHERE json_each.value = ?)")
		args = append(args, tag)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBookmark scans a single row into a Bookmark struct.
func scanBookmark(row rowScanner) (*bookmark.Bookmark, error) {
	var (
		b            bookmark.Bookmark
		contentText  sql.NullString
		tagsJSON     sql.NullString
		summaryShort sql.NullString
		topic        sql.NullString
	)

	err := row.Scan(
		&b.ID, &b.URL, &b.Domain, &b.Title, &contentText, &b.UserNote, &tagsJSON,
		&summaryShort, &topic, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	b.ContentText = contentText.String
	b.SummaryShort = fromNullString(summaryShort)
	b.Topic = fromNullString(topic)

	b.Tags = []string{}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &b.Tags); err != nil {
			return nil, err
		}
	}

	return &b, nil
}

// toTagsJSON stores tags as a JSON array; an empty set is stored as NULL.
func toTagsJSON(tags []string) (sql.NullString, error) {
	if len(tags) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// toNullString converts a *string to sql.NullString; empty strings become NULL.
func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// fromNullString converts a sql.NullString to *string.
func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
