package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Bhumit267/CodeXi/internal/core/domain"
	"github.com/Bhumit267/CodeXi/internal/core/ports"
)

// UserHandler serves the authenticated /user routes.
type UserHandler struct {
	userService ports.UserService
	events      EventRecorder
}

func NewUserHandler(userService ports.UserService, events EventRecorder) *UserHandler {
	if events == nil {
		events = discardEvents{}
	}
	return &UserHandler{userService: userService, events: events}
}

// Profile returns the caller's identity record.
//
// @Summary      Current profile
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  messageResponse
// @Failure      404  {object}  messageResponse
// @Router       /user/profile [get]
func (h *UserHandler) Profile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	user, err := h.userService.Profile(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user})
}

// UpdateProfile edits username, email or full name.
//
// @Summary      Update profile
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Fields to change"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      409   {object}  messageResponse
// @Router       /user/update-profile [patch]
func (h *UserHandler) UpdateProfile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.userService.UpdateProfile(c.Request().Context(), userID, ports.UpdateProfileInput{
		Username: req.Username,
		Email:    req.Email,
		FullName: req.FullName,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, userResponse{User: user, Message: "Profile updated successfully"})
}

// UpdatePassword replaces the caller's password after checking the current one.
//
// @Summary      Update password
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updatePasswordRequest  true  "Current and new password"
// @Success      200   {object}  messageResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Failure      429   {object}  messageResponse
// @Router       /user/update-password [patch]
func (h *UserHandler) UpdatePassword(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req updatePasswordRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	if err := h.userService.UpdatePassword(c.Request().Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		return err
	}

	h.events.Enqueue(domain.AuthEvent{
		Kind:      domain.EventPasswordChanged,
		UserID:    userID,
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		At:        time.Now().UTC(),
	})
	return c.JSON(http.StatusOK, messageResponse{Message: "Password updated successfully"})
}

// SolveProblem toggles a problem slug in the caller's solved set.
//
// @Summary      Toggle solved problem
// @Tags         user
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      solveProblemRequest  true  "Problem slug"
// @Success      200   {object}  solvedResponse
// @Failure      400   {object}  messageResponse
// @Failure      401   {object}  messageResponse
// @Router       /user/solve-problem [post]
func (h *UserHandler) SolveProblem(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	var req solveProblemRequest
	if err := c.Bind(&req); err != nil {
		return domain.ValidationError("invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	solved, err := h.userService.ToggleSolved(c.Request().Context(), userID, req.Slug)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, solvedResponse{SolvedProblems: solved, Message: "Solved problems updated"})
}

// DeleteProfile removes the caller's identity record.
//
// @Summary      Delete profile
// @Tags         user
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  messageResponse
// @Failure      401  {object}  messageResponse
// @Failure      404  {object}  messageResponse
// @Router       /user/delete-profile [delete]
func (h *UserHandler) DeleteProfile(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	if err := h.userService.Delete(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "Profile deleted successfully"})
}
