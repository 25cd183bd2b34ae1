package model

import "errors"

var (
	// ErrInvalidProject is returned when a project fails validation.
	ErrInvalidProject = errors.New("projectideas: invalid project")

	// ErrNotTeamMember is returned when a non-member acts on a project.
	ErrNotTeamMember = errors.New("projectideas: user is not a team member")

	// ErrAlreadyTeamMember is returned when a member asks to join or is accepted again.
	ErrAlreadyTeamMember = errors.New("projectideas: user is already a team member")

	// ErrAlreadyRequested is returned on a duplicate join request.
	ErrAlreadyRequested = errors.New("projectideas: user has already requested to join")

	// ErrNotLookingForMembers is returned when asking to join a closed project.
	ErrNotLookingForMembers = errors.New("projectideas: project is not looking for members")
)
