package sqlxrepos

import (
	"context"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

const usersTable = "users"

var userColumns = []string{
	"id", "username", "email", "first_name", "last_name", "telephone", "date_of_birth", "gender",
	"school_id", "class_name", "favorite_subject_id", "district_id", "bio", "picture",
	"role", "status", "password_hash", "created_at", "updated_at", "last_login",
}

type userRepository struct {
	repository
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) user.Repository {
	return &userRepository{repository{db: db}}
}

func userValues(usr user.User) []interface{} {
	return []interface{}{
		usr.ID, usr.Username, usr.Email, usr.FirstName, usr.LastName, usr.Telephone, usr.DateOfBirth, usr.Gender,
		usr.SchoolID, usr.ClassName, usr.FavoriteSubjectID, usr.DistrictID, usr.Bio, usr.Picture,
		usr.Role, usr.Status, usr.PasswordHash, usr.CreatedAt.UTC(), usr.UpdatedAt.UTC(), usr.LastLogin,
	}
}

// trapUniqueErr maps the unique indexes on users to their service errors.
func trapUniqueErr(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case "users_username_key":
			return user.ErrUsernameExists
		case "users_email_key":
			return user.ErrEmailExists
		}
	}
	return errors.Wrap(err, msg)
}

func (repo userRepository) CheckUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, exec ...core.DBExecutor) error {
	or := sq.Or{}
	if username != "" {
		or = append(or, sq.Expr("lower(username) = lower(?)", username))
	}
	if email != "" {
		or = append(or, sq.Expr("lower(email) = lower(?)", email))
	}
	if len(or) == 0 {
		return nil
	}
	where := sq.And{or}
	if len(excludedUsers) > 0 {
		ids := make([]string, 0, len(excludedUsers))
		for _, u := range excludedUsers {
			ids = append(ids, u.ID)
		}
		where = append(where, sq.NotEq{"id": ids})
	}

	var taken []struct {
		Username string `db:"username"`
		Email    string `db:"email"`
	}
	qb := psql.Select("username", "email").From(usersTable).Where(where).Limit(2)
	if err := repo.selectAll(ctx, repo.getExec(exec), &taken, qb); err != nil {
		return errors.Wrap(err, "checking user uniqueness")
	}
	for _, t := range taken {
		if username != "" && strings.EqualFold(t.Username, username) {
			return user.ErrUsernameExists
		}
	}
	if len(taken) > 0 {
		return user.ErrEmailExists
	}
	return nil
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.New().String()
	}
	qb := psql.Insert(usersTable).Columns(userColumns...).Values(userValues(usr)...)
	if _, err := repo.exec(ctx, repo.getExec(exec), qb); err != nil {
		return user.User{}, trapUniqueErr(err, "inserting user")
	}
	return usr, nil
}

func (repo userRepository) GetUser(ctx context.Context, filter user.GetFilter, exec ...core.DBExecutor) (user.User, error) {
	var where sq.Sqlizer
	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return user.User{}, user.ErrNotFound
		}
		where = sq.Eq{"id": filter.ID}
	case filter.Username != "":
		where = sq.Eq{"username": filter.Username}
	case filter.Email != "":
		where = sq.Expr("lower(email) = lower(?)", filter.Email)
	case len(filter.UsernameOrEmail) > 0:
		or := sq.Or{}
		for _, v := range filter.UsernameOrEmail {
			if v != "" {
				or = append(or, sq.Eq{"username": v}, sq.Expr("lower(email) = lower(?)", v))
			}
		}
		if len(or) == 0 {
			return user.User{}, user.ErrNotFound
		}
		where = or
	default:
		return user.User{}, user.ErrNotFound
	}

	var usr user.User
	qb := psql.Select(userColumns...).From(usersTable).Where(where).Limit(1)
	if err := repo.get(ctx, repo.getExec(exec), &usr, qb); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "finding user")
	}
	return usr, nil
}

func userWhere(filter user.QueryFilter) sq.And {
	where := sq.And{}
	if filter.DistrictID != "" {
		where = append(where, sq.Eq{"district_id": filter.DistrictID})
	}
	if filter.Role != "" {
		where = append(where, sq.Eq{"role": filter.Role})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"status": filter.Status})
	}
	if !filter.CreatedBefore.IsZero() {
		where = append(where, sq.Lt{"created_at": filter.CreatedBefore.UTC()})
	}
	return where
}

func (repo userRepository) QueryUsers(ctx context.Context, filter user.QueryFilter, page *core.Page, exec ...core.DBExecutor) ([]user.User, error) {
	if filter.DistrictID != "" {
		if _, err := uuid.Parse(filter.DistrictID); err != nil {
			return []user.User{}, nil
		}
	}
	var users []user.User
	qb := psql.Select(userColumns...).From(usersTable).Where(userWhere(filter)).OrderBy("created_at DESC", "id")
	if err := repo.selectAll(ctx, repo.getExec(exec), &users, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (repo userRepository) CountUsers(ctx context.Context, filter user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	if filter.DistrictID != "" {
		if _, err := uuid.Parse(filter.DistrictID); err != nil {
			return 0, nil
		}
	}
	var n int
	qb := psql.Select("count(*)").From(usersTable).Where(userWhere(filter))
	if err := repo.get(ctx, repo.getExec(exec), &n, qb); err != nil {
		return 0, errors.Wrap(err, "counting users")
	}
	return n, nil
}

func (repo userRepository) UpdateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if _, err := uuid.Parse(usr.ID); err != nil {
		return user.User{}, user.ErrNotFound
	}
	set := make(map[string]interface{}, len(userColumns))
	vals := userValues(usr)
	for i, col := range userColumns {
		switch col {
		case "id", "created_at":
			continue
		}
		set[col] = vals[i]
	}

	qb := psql.Update(usersTable).SetMap(set).Where(sq.Eq{"id": usr.ID}).Suffix("RETURNING " + strings.Join(userColumns, ", "))
	var updated user.User
	if err := repo.get(ctx, repo.getExec(exec), &updated, qb); err != nil {
		if errors.Cause(err) == errNoRows {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, trapUniqueErr(err, "updating user")
	}
	return updated, nil
}

func (repo userRepository) DeleteUsers(ctx context.Context, filter user.QueryFilter, exec ...core.DBExecutor) (int, error) {
	n, err := repo.exec(ctx, repo.getExec(exec), psql.Delete(usersTable).Where(userWhere(filter)))
	if err != nil {
		return 0, errors.Wrap(err, "deleting users")
	}
	return n, nil
}
