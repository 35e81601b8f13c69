package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-preprint/pkg/preprint"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements preprint.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

const preprintColumns = `id, title, abstract, category, course_code, authors, faculty,
	pdf_file, uploaded_at, version, doi, status`

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "doi") {
				return preprint.ErrDuplicateDOI
			}
			return fmt.Errorf("%w: duplicate entry", preprint.ErrPersistenceFailure)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: required field %s is missing", preprint.ErrPersistenceFailure, pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("%w: table does not exist - database migration required", preprint.ErrPersistenceFailure)
		default:
			return fmt.Errorf("%w: database error in %s: %s (code: %s)", preprint.ErrPersistenceFailure, operation, pgErr.Message, pgErr.Code)
		}
	}

	return fmt.Errorf("%w: database error in %s: %w", preprint.ErrPersistenceFailure, operation, err)
}

func (r *Repository) CreatePreprint(ctx context.Context, p *preprint.Preprint) error {
	if err := preprint.ValidateStatus(p.Status); err != nil {
		return err
	}

	query := `
		INSERT INTO preprints (
			title, abstract, category, course_code, authors, faculty,
			pdf_file, uploaded_at, version, doi, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`

	err := r.db.QueryRow(ctx, query,
		p.Title, p.Abstract, p.Category, p.CourseCode, p.Authors, p.Faculty,
		p.FileLocator, p.UploadedAt, p.Version, p.DOI, p.Status).Scan(&p.ID)
	if err != nil {
		return r.handlePostgresError("create preprint", err)
	}

	return nil
}

func (r *Repository) GetPreprint(ctx context.Context, id int64) (*preprint.Preprint, error) {
	query := `SELECT ` + preprintColumns + ` FROM preprints WHERE id = $1`

	p, err := scanPreprint(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, preprint.ErrPreprintNotFound
		}
		return nil, r.handlePostgresError("get preprint", err)
	}

	return p, nil
}

func (r *Repository) ListPreprints(ctx context.Context, filter preprint.ListFilter) ([]*preprint.Preprint, error) {
	var (
		conditions []string
		args       []interface{}
	)

	if filter.Query != "" {
		args = append(args, "%"+escapeLike(filter.Query)+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR abstract ILIKE $%d)", n, n))
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		conditions = append(conditions, fmt.Sprintf("lower(category) = lower($%d)", len(args)))
	}

	query := `SELECT ` + preprintColumns + ` FROM preprints`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}
	query += ` ORDER BY uploaded_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list preprints", err)
	}
	defer rows.Close()

	result := []*preprint.Preprint{}
	for rows.Next() {
		p, err := scanPreprint(rows)
		if err != nil {
			return nil, r.handlePostgresError("list preprints", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list preprints", err)
	}

	return result, nil
}

func (r *Repository) SetDOI(ctx context.Context, id int64, doi string) error {
	query := `UPDATE preprints SET doi = $2 WHERE id = $1 AND doi IS NULL`

	tag, err := r.db.Exec(ctx, query, id, doi)
	if err != nil {
		return r.handlePostgresError("set doi", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing updated: either the row is missing or it already has a doi
	var existing *string
	err = r.db.QueryRow(ctx, `SELECT doi FROM preprints WHERE id = $1`, id).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return preprint.ErrPreprintNotFound
		}
		return r.handlePostgresError("set doi", err)
	}
	return preprint.ErrDOIAlreadyAssigned
}

func (r *Repository) CountDOIsWithPrefix(ctx context.Context, prefix string) (int, error) {
	query := `SELECT count(*) FROM preprints WHERE doi LIKE $1`

	var count int
	if err := r.db.QueryRow(ctx, query, escapeLike(prefix)+"%").Scan(&count); err != nil {
		return 0, r.handlePostgresError("count dois", err)
	}
	return count, nil
}

func (r *Repository) Ping(ctx context.Context) error {
	var one int
	if err := r.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return r.handlePostgresError("ping", err)
	}
	return nil
}

func scanPreprint(row pgx.Row) (*preprint.Preprint, error) {
	var p preprint.Preprint
	err := row.Scan(
		&p.ID, &p.Title, &p.Abstract, &p.Category, &p.CourseCode, &p.Authors, &p.Faculty,
		&p.FileLocator, &p.UploadedAt, &p.Version, &p.DOI, &p.Status)
	if err != nil {
		return nil, err
	}
	p.UploadedAt = p.UploadedAt.UTC()
	return &p, nil
}

// escapeLike quotes LIKE metacharacters so s matches literally
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
