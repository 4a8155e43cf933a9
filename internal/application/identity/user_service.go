package identity

import (
	"context"

	domain "github.com/invoicely/backend/internal/domain/identity"
	"github.com/invoicely/backend/internal/domain/shared"
	"github.com/invoicely/backend/internal/infrastructure/logger"
	"github.com/invoicely/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService handles user administration and self-service profile operations
type UserService struct {
	userRepo       domain.UserRepository
	authz          domain.Authorizer
	auth           *AuthService
	eventPublisher shared.EventPublisher
}

// NewUserService creates a new user service
func NewUserService(userRepo domain.UserRepository, authService *AuthService) *UserService {
	return &UserService{
		userRepo: userRepo,
		auth:     authService,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *UserService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// GetByID returns a user. Non-admins can only fetch their own record.
func (s *UserService) GetByID(ctx context.Context, p domain.Principal, id uuid.UUID) (*UserResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "get")
	defer span.End()

	if !s.authz.CanManageUsers(p) && p.ID != id {
		return nil, shared.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	resp := ToUserResponse(user)
	return &resp, nil
}

// List returns users matching the filter. Admin only.
func (s *UserService) List(ctx context.Context, p domain.Principal, filter UserListFilter) ([]UserResponse, int64, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "list")
	defer span.End()

	if !s.authz.CanManageUsers(p) {
		return nil, 0, shared.ErrForbidden
	}

	domainFilter := domain.UserFilter{Filter: toSharedFilter(filter.Skip, filter.Take, filter.OrderBy, filter.OrderDir)}
	if filter.Role != nil {
		role := domain.Role(*filter.Role)
		if !role.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_ROLE", "Invalid role filter")
		}
		domainFilter.Role = &role
	}
	domainFilter.Search = filter.Search

	users, err := s.userRepo.FindAll(ctx, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}

	total, err := s.userRepo.Count(ctx, domainFilter)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, 0, err
	}

	responses := make([]UserResponse, 0, len(users))
	for i := range users {
		responses = append(responses, ToUserResponse(&users[i]))
	}

	return responses, total, nil
}

// Create provisions a new account on behalf of another user. Admin only.
func (s *UserService) Create(ctx context.Context, p domain.Principal, req CreateUserRequest) (*UserResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "create")
	defer span.End()

	if !s.authz.CanManageUsers(p) {
		return nil, shared.ErrForbidden
	}

	exists, err := s.userRepo.ExistsByEmail(ctx, req.Email)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_ALREADY_EXISTS", "An account with this email already exists")
	}

	role := domain.RoleUser
	if req.Role != "" {
		role = domain.Role(req.Role)
	}

	user, err := domain.NewUser(req.Email, req.Password, req.Name, role)
	if err != nil {
		return nil, err
	}
	if req.CompanyName != "" {
		if err := user.UpdateProfile(req.Name, req.CompanyName); err != nil {
			return nil, err
		}
	}

	if err := s.userRepo.Save(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, user.GetDomainEvents()...)
		user.ClearDomainEvents()
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, user.ID.String())
	logger.L(ctx).Info("user created by admin",
		zap.String("user_id", user.ID.String()),
		zap.String("role", user.Role.String()),
	)

	resp := ToUserResponse(user)
	return &resp, nil
}

// AdminUpdate rewrites another user's display fields. Admin only.
func (s *UserService) AdminUpdate(ctx context.Context, p domain.Principal, id uuid.UUID, req AdminUpdateUserRequest) (*UserResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "admin_update")
	defer span.End()

	if !s.authz.CanManageUsers(p) {
		return nil, shared.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := user.UpdateProfile(req.Name, req.CompanyName); err != nil {
		return nil, err
	}

	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, user.ID.String())

	resp := ToUserResponse(user)
	return &resp, nil
}

// UpdateProfile updates the caller's own display fields
func (s *UserService) UpdateProfile(ctx context.Context, p domain.Principal, req UpdateProfileRequest) (*UserResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "update_profile")
	defer span.End()

	user, err := s.userRepo.FindByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	if err := user.UpdateProfile(req.Name, req.CompanyName); err != nil {
		return nil, err
	}

	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrUserID, user.ID.String())

	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangePassword changes the caller's password and revokes outstanding tokens
func (s *UserService) ChangePassword(ctx context.Context, p domain.Principal, req ChangePasswordRequest) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "change_password")
	defer span.End()

	user, err := s.userRepo.FindByID(ctx, p.ID)
	if err != nil {
		return err
	}

	if err := user.ChangePassword(req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}

	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	// Outstanding sessions must not survive a password change.
	if s.auth != nil {
		if err := s.auth.RevokeUserTokens(ctx, user.ID.String()); err != nil {
			logger.L(ctx).Warn("failed to revoke tokens after password change",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}

	logger.L(ctx).Info("password changed", zap.String("user_id", user.ID.String()))
	return nil
}

// ChangeRole moves a user to a different role. Admin only.
func (s *UserService) ChangeRole(ctx context.Context, p domain.Principal, id uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "change_role")
	defer span.End()

	if !s.authz.CanManageUsers(p) {
		return nil, shared.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := user.ChangeRole(domain.Role(req.Role)); err != nil {
		return nil, err
	}

	if err := s.userRepo.SaveWithLock(ctx, user); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if s.eventPublisher != nil {
		_ = s.eventPublisher.Publish(ctx, user.GetDomainEvents()...)
		user.ClearDomainEvents()
	}

	// Existing tokens carry the old role and must be reissued.
	if s.auth != nil {
		if err := s.auth.RevokeUserTokens(ctx, user.ID.String()); err != nil {
			logger.L(ctx).Warn("failed to revoke tokens after role change",
				zap.String("user_id", user.ID.String()),
				zap.Error(err),
			)
		}
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrUserID, user.ID.String(),
		"role", user.Role.String(),
	)

	resp := ToUserResponse(user)
	return &resp, nil
}

// Delete removes a user account. Admin only; admins cannot delete themselves.
func (s *UserService) Delete(ctx context.Context, p domain.Principal, id uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "user", "delete")
	defer span.End()

	if !s.authz.CanManageUsers(p) {
		return shared.ErrForbidden
	}
	if p.ID == id {
		return shared.NewDomainError("INVALID_OPERATION", "You cannot delete your own account")
	}

	if _, err := s.userRepo.FindByID(ctx, id); err != nil {
		return err
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	if s.auth != nil {
		if err := s.auth.RevokeUserTokens(ctx, id.String()); err != nil {
			logger.L(ctx).Warn("failed to revoke tokens for deleted user",
				zap.String("user_id", id.String()),
				zap.Error(err),
			)
		}
	}

	logger.L(ctx).Info("user deleted", zap.String("user_id", id.String()))
	return nil
}

func toSharedFilter(skip, take int, orderBy, orderDir string) shared.Filter {
	f := shared.DefaultFilter()
	if skip > 0 {
		f.Skip = skip
	}
	if take > 0 {
		f.Take = take
	}
	if orderBy != "" {
		f.OrderBy = orderBy
	}
	if orderDir != "" {
		f.OrderDir = orderDir
	}
	return f
}
