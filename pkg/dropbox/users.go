package dropbox

import (
	"context"
	"fmt"
)

// Name is the name of an account.
type Name struct {
	GivenName       string `json:"given_name"`
	Surname         string `json:"surname"`
	FamiliarName    string `json:"familiar_name"`
	DisplayName     string `json:"display_name"`
	AbbreviatedName string `json:"abbreviated_name"`
}

// AccountType is basic, pro or business.
type AccountType struct {
	Tag string `json:".tag"`
}

// FullAccount represents the response from /users/get_current_account.
type FullAccount struct {
	AccountID       AccountID   `json:"account_id"`
	Name            Name        `json:"name"`
	Email           string      `json:"email"`
	EmailVerified   bool        `json:"email_verified"`
	Disabled        bool        `json:"disabled"`
	Locale          string      `json:"locale"`
	ReferralLink    string      `json:"referral_link"`
	IsPaired        bool        `json:"is_paired"`
	AccountType     AccountType `json:"account_type"`
	RootInfo        RootInfo    `json:"root_info"`
	Country         string      `json:"country,omitempty"`
	ProfilePhotoURL string      `json:"profile_photo_url,omitempty"`
	TeamMemberID    string      `json:"team_member_id,omitempty"`
}

// SpaceUsage is the response from /users/get_space_usage.
type SpaceUsage struct {
	Used       uint64          `json:"used"`
	Allocation SpaceAllocation `json:"allocation"`
}

// SpaceAllocation is either an individual or a team quota.
type SpaceAllocation struct {
	Tag                          string
	Allocated                    uint64
	TeamUsed                     uint64
	UserWithinTeamSpaceAllocated uint64
}

// SpaceAllocation tags.
const (
	SpaceAllocationIndividual = "individual"
	SpaceAllocationTeam       = "team"
)

func (u *SpaceAllocation) UnmarshalJSON(b []byte) error {
	tag, err := decodeTag(b)
	if err != nil {
		return err
	}
	*u = SpaceAllocation{Tag: tag}

	var w struct {
		Allocated                    uint64 `json:"allocated"`
		Used                         uint64 `json:"used"`
		UserWithinTeamSpaceAllocated uint64 `json:"user_within_team_space_allocated"`
	}
	if err := decodeInline(b, &w); err != nil {
		return err
	}
	u.Allocated = w.Allocated
	if tag == SpaceAllocationTeam {
		u.TeamUsed = w.Used
		u.UserWithinTeamSpaceAllocated = w.UserWithinTeamSpaceAllocated
	}
	return nil
}

// Quota returns the bytes the account may use, honoring team member limits.
func (u SpaceAllocation) Quota() uint64 {
	if u.Tag == SpaceAllocationTeam && u.UserWithinTeamSpaceAllocated > 0 {
		return u.UserWithinTeamSpaceAllocated
	}
	return u.Allocated
}

// UsersGetCurrentAccount returns the account the token belongs to.
func (c *Client) UsersGetCurrentAccount(ctx context.Context) (*FullAccount, error) {
	account, err := rpcCall[Tagged, FullAccount](ctx, c, "users/get_current_account", nil)
	if err != nil {
		return nil, err
	}
	if account.AccountID == "" {
		return nil, fmt.Errorf("empty account_id in response")
	}
	return &account, nil
}

// GetAccountID retrieves the current user's account ID.
func (c *Client) GetAccountID(ctx context.Context) (string, error) {
	account, err := c.UsersGetCurrentAccount(ctx)
	if err != nil {
		return "", err
	}
	return account.AccountID, nil
}

// UsersGetSpaceUsage returns the space usage of the current account.
func (c *Client) UsersGetSpaceUsage(ctx context.Context) (*SpaceUsage, error) {
	usage, err := rpcCall[Tagged, SpaceUsage](ctx, c, "users/get_space_usage", nil)
	if err != nil {
		return nil, err
	}
	return &usage, nil
}
