package user

import (
	"context"
	"fmt"
	"io"
	"net/mail"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
)

const pictureFolder = "profile_pic"

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("user")
	ErrEmailExists     = errors.New("a user with this email already exists")
	ErrUsernameExists  = errors.New("a user with this username already exists")
	ErrUnknownUser     = errors.New("username does not exist")
	ErrBadCredentials  = errors.New("incorrect password")
	ErrAccountInactive = core.NewPermissionError("account not activated")
	ErrInvalidToken    = errors.New("activation link is invalid")
)

type (
	Repository interface {
		// CheckUniqueness returns ErrUsernameExists or ErrEmailExists if another user holds them.
		CheckUniqueness(ctx context.Context, username, email string, excludedUsers []User, exec ...core.DBExecutor) error
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		// QueryUsers returns users matching filter, newest first; page limits the result when non-nil.
		QueryUsers(ctx context.Context, filter QueryFilter, page *core.Page, exec ...core.DBExecutor) ([]User, error)
		CountUsers(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		DeleteUsers(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error
		Register(ctx context.Context, nu NewUser) (User, error)
		Activate(ctx context.Context, uid, token string) (User, error)
		Authenticate(ctx context.Context, username, pwd string) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		EditProfile(ctx context.Context, editor User, targetID string, up UpdateProfile) (User, error)
		SetPicture(ctx context.Context, editor User, targetID, filename string, r io.Reader) (User, error)
		QueryByDistrict(ctx context.Context, districtID string, audience Audience, rawPage string) (DistrictUsers, error)
		PurgeInactive(ctx context.Context) (int, error)
	}

	// DistrictUsers is one page of the users living in a district.
	DistrictUsers struct {
		District refdata.Entry `json:"district"`
		Users    []User        `json:"users"`
		Page     core.Page     `json:"page"`
		Total    int           `json:"num_users"` // regardless of the audience filter
	}

	Service struct {
		repo     Repository
		refSvc   refdata.ServiceInterface
		mailSvc  core.EmailService
		media    core.MediaStorage
		validate *validator.Validate
		tokenGen tokenGenerator
		conf     *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	repo Repository,
	refSvc refdata.ServiceInterface,
	mailSvc core.EmailService,
	media core.MediaStorage,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		repo:     repo,
		refSvc:   refSvc,
		mailSvc:  mailSvc,
		media:    media,
		validate: validate,
		tokenGen: tokenGenerator{secretKey: []byte(conf.SecretKey), timeout: conf.ActivationTimeoutDelta},
		conf:     conf,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, uname, email string, exclUsers ...User) error {
	if err := svc.repo.CheckUniqueness(ctx, uname, email, exclUsers); err != nil {
		var field string
		switch errors.Cause(err) {
		case ErrUsernameExists:
			field = "username"
		case ErrEmailExists:
			field = "email"
		default:
			return errors.Wrap(err, "checking uniqueness")
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: errors.Cause(err).Error()})
	}
	return nil
}

// Register creates a pending account and mails its activation link.
// nu must have been validated.
func (svc *Service) Register(ctx context.Context, nu NewUser) (User, error) {
	now := time.Now().UTC()
	usr := User{
		ID:        uuid.New().String(),
		Username:  nu.Username,
		Email:     nu.Email,
		Picture:   DefaultPicture,
		Role:      RoleStudent,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if nu.IsTutor {
		usr.Role = RoleTutor
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "setting password")
	}

	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		return User{}, errors.Wrap(err, "creating user")
	}
	svc.sendActivationMail(usr)
	return usr, nil
}

func (svc *Service) sendActivationMail(usr User) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: usr.Email}},
		Subject:      "Activate your Account !",
		TemplateName: "activate_account",
		TemplateData: map[string]interface{}{
			"Username": usr.Username,
			"UID":      EncodeUID(usr),
			"Token":    svc.tokenGen.makeToken(usr),
		},
	})
}

// Activate turns a pending account active when uid and token check out, and logs the user in.
func (svc *Service) Activate(ctx context.Context, uid, token string) (User, error) {
	id, err := decodeUID(uid)
	if err != nil {
		return User{}, ErrInvalidToken
	}
	if _, err = uuid.Parse(id); err != nil {
		return User{}, ErrInvalidToken
	}
	usr, err := svc.repo.GetUser(ctx, GetFilter{ID: id})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrInvalidToken
		}
		return User{}, errors.Wrap(err, "finding user")
	}
	if err = svc.tokenGen.verifyToken(usr, token); err != nil {
		return User{}, ErrInvalidToken
	}

	usr.Status = StatusActive
	usr.LastLogin = null.TimeFrom(stamp())
	usr.UpdatedAt = usr.LastLogin.Time
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "activating user")
}

// Authenticate checks the credentials of an active user and stamps their last login.
func (svc *Service) Authenticate(ctx context.Context, username, pwd string) (User, error) {
	usr, err := svc.repo.GetUser(ctx, GetFilter{Username: core.CleanString(username)})
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return User{}, ErrUnknownUser
		}
		return User{}, errors.Wrap(err, "finding user by username")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrBadCredentials
	}
	if !usr.IsActive() {
		return User{}, ErrAccountInactive
	}

	usr.LastLogin = null.TimeFrom(stamp())
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "setting last login")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return User{}, ErrNotFound
	}
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

// EditProfile applies up to the target's profile. Only the user themselves may edit it.
func (svc *Service) EditProfile(ctx context.Context, editor User, targetID string, up UpdateProfile) (User, error) {
	usr, err := svc.GetByID(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if editor.ID != usr.ID {
		return User{}, core.ErrPermissionDenied
	}

	up.clean()
	if err = svc.validate.Struct(up); err != nil {
		return User{}, err
	}
	if err = svc.refSvc.CheckRefs(ctx,
		refdata.Ref{Field: "school_id", Kind: refdata.KindSchool, ID: deref(up.SchoolID)},
		refdata.Ref{Field: "favorite_subject_id", Kind: refdata.KindSubject, ID: deref(up.FavoriteSubjectID)},
		refdata.Ref{Field: "district_id", Kind: refdata.KindDistrict, ID: deref(up.DistrictID)},
	); err != nil {
		return User{}, err
	}
	if up.Email != nil && *up.Email != "" && *up.Email != usr.Email {
		if err = svc.CheckUniqueness(ctx, "", *up.Email, usr); err != nil {
			return User{}, err
		}
	}

	if err = up.apply(&usr); err != nil {
		return User{}, err
	}
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating profile")
}

// SetPicture stores a new profile picture for the target. Only the user themselves may change it.
func (svc *Service) SetPicture(ctx context.Context, editor User, targetID, filename string, r io.Reader) (User, error) {
	usr, err := svc.GetByID(ctx, targetID)
	if err != nil {
		return User{}, err
	}
	if editor.ID != usr.ID {
		return User{}, core.ErrPermissionDenied
	}

	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif":
	default:
		return User{}, core.NewValidationError(nil, core.FieldError{Field: "picture", Error: "upload a valid image"})
	}

	name := fmt.Sprintf("%s_%d%s", usr.ID, time.Now().Unix(), ext)
	loc, err := svc.media.Save(ctx, pictureFolder, name, r)
	if err != nil {
		return User{}, errors.Wrap(err, "saving picture")
	}

	usr.Picture = loc
	usr.UpdatedAt = time.Now().UTC()
	usr, err = svc.repo.UpdateUser(ctx, usr)
	return usr, errors.Wrap(err, "updating picture")
}

// QueryByDistrict lists the active users of a district, filtered by audience and paginated.
func (svc *Service) QueryByDistrict(ctx context.Context, districtID string, audience Audience, rawPage string) (DistrictUsers, error) {
	district, err := svc.refSvc.Get(ctx, refdata.KindDistrict, districtID)
	if err != nil {
		return DistrictUsers{}, err
	}

	filter := QueryFilter{DistrictID: district.ID, Status: StatusActive}
	total, err := svc.repo.CountUsers(ctx, filter)
	if err != nil {
		return DistrictUsers{}, errors.Wrap(err, "counting district users")
	}

	filter.Role = audience.Role()
	count := total
	if filter.Role != "" {
		if count, err = svc.repo.CountUsers(ctx, filter); err != nil {
			return DistrictUsers{}, errors.Wrap(err, "counting district users")
		}
	}

	page := core.NewPage(rawPage, count, svc.conf.Pagination.Users)
	users, err := svc.repo.QueryUsers(ctx, filter, &page)
	if err != nil {
		return DistrictUsers{}, errors.Wrap(err, "querying district users")
	}
	if users == nil {
		users = []User{}
	}
	return DistrictUsers{District: district, Users: users, Page: page, Total: total}, nil
}

// PurgeInactive deletes pending accounts whose activation link has expired.
func (svc *Service) PurgeInactive(ctx context.Context) (int, error) {
	n, err := svc.repo.DeleteUsers(ctx, QueryFilter{
		Status:        StatusPending,
		CreatedBefore: time.Now().UTC().Add(-svc.conf.ActivationTimeoutDelta),
	})
	return n, errors.Wrap(err, "purging inactive users")
}

// stamp returns the current UTC time at the database precision.
func stamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
