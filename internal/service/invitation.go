package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/stacklight/identity-server-go/internal/audit"
	"github.com/stacklight/identity-server-go/internal/email"
	apperrors "github.com/stacklight/identity-server-go/internal/errors"
	"github.com/stacklight/identity-server-go/internal/license"
	"github.com/stacklight/identity-server-go/internal/model"
	"github.com/stacklight/identity-server-go/internal/policy"
	"github.com/stacklight/identity-server-go/internal/repository"
	"github.com/stacklight/identity-server-go/internal/util"
)

// licenseChecker is the one bit of the license service invitations need.
type licenseChecker interface {
	IsValid(ctx context.Context) bool
}

var _ licenseChecker = (*license.Service)(nil)

// InvitationService manages the single-use registration permits.
type InvitationService struct {
	invRepo  repository.InvitationRepository
	userRepo repository.UserRepository
	signup   *policy.SignupPolicy
	license  licenseChecker
	sender   email.Sender
}

func NewInvitationService(
	invRepo repository.InvitationRepository,
	userRepo repository.UserRepository,
	signup *policy.SignupPolicy,
	lic licenseChecker,
	sender email.Sender,
) *InvitationService {
	return &InvitationService{
		invRepo:  invRepo,
		userRepo: userRepo,
		signup:   signup,
		license:  lic,
		sender:   sender,
	}
}

// Create issues an invitation for the email. Needs a valid license with
// free seats, and refuses emails that already have an account or a
// pending invitation.
func (s *InvitationService) Create(ctx context.Context, emailAddr string) (*model.Invitation, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if err := validateEmail(emailAddr); err != nil {
		return nil, err
	}
	if !s.license.IsValid(ctx) {
		return nil, apperrors.LicenseInvalid("A valid license is required to invite members")
	}

	user, err := s.userRepo.FindByEmail(ctx, emailAddr)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if user != nil {
		return nil, apperrors.EmailTaken()
	}

	existing, err := s.invRepo.FindEarliestByEmail(ctx, emailAddr)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("Invitation")
	}

	invitation, err := s.invRepo.Create(ctx, model.CreateInvitationParams{
		Email: emailAddr,
		Code:  uuid.NewString(),
	})
	if err != nil {
		return nil, apperrors.Database(err)
	}

	audit.Log(ctx, audit.Event{
		Type:  audit.EventInvitationCreate,
		Email: invitation.Email,
		Details: map[string]interface{}{
			"code": util.MaskCode(invitation.Code),
		},
	})

	// Delivery is best effort: the code is also visible to admins in
	// the invitation list.
	if err := s.sender.SendInvitation(ctx, invitation.Email, invitation.Code); err != nil {
		if err != email.ErrNotConfigured {
			log.Error().Err(err).Str("email", invitation.Email).Msg("failed to send invitation email")
		}
	}

	return invitation, nil
}

// SelfServiceEnabled reports whether the self-service invitation flow
// is on: it needs a working email sender and at least one allow-listed
// domain. Clients use this to decide whether to show the request form.
func (s *InvitationService) SelfServiceEnabled(ctx context.Context) (bool, error) {
	if !s.sender.Configured() {
		return false, nil
	}
	enabled, err := s.signup.HasAllowedDomains(ctx)
	if err != nil {
		return false, apperrors.Database(err)
	}
	return enabled, nil
}

// RequestForSelf lets a user on an allow-listed domain ask for their own
// invitation email, without an admin in the loop. The flow only makes
// sense when the code can actually be delivered.
func (s *InvitationService) RequestForSelf(ctx context.Context, emailAddr string) error {
	emailAddr = strings.TrimSpace(emailAddr)
	if err := validateEmail(emailAddr); err != nil {
		return err
	}
	if !s.sender.Configured() {
		return apperrors.Forbidden("Self-service invitations require email delivery")
	}

	allowed, err := s.signup.EmailAllowedWithoutInvitation(ctx, emailAddr)
	if err != nil {
		return apperrors.Database(err)
	}
	if !allowed {
		return apperrors.DomainNotAllowed()
	}

	_, err = s.Create(ctx, emailAddr)
	return err
}

func (s *InvitationService) List(ctx context.Context, limit, offset int) ([]model.Invitation, error) {
	invitations, err := s.invRepo.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.Database(err)
	}
	return invitations, nil
}

// Delete revokes a pending invitation.
func (s *InvitationService) Delete(ctx context.Context, id int64) error {
	deleted, err := s.invRepo.Delete(ctx, id)
	if err != nil {
		return apperrors.Database(err)
	}
	if deleted == 0 {
		return apperrors.NotFound("Invitation")
	}

	audit.Log(ctx, audit.Event{
		Type:    audit.EventInvitationDelete,
		Details: map[string]interface{}{"invitation_id": id},
	})

	return nil
}
