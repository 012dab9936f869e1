package httpapi

import (
	"net/http"

	goIAM "github.com/MrEthical07/goIAM"
	"github.com/MrEthical07/goIAM/middleware"
	"github.com/labstack/echo/v4"
)

type signUpRequest struct {
	Username  string `json:"username" validate:"mintrim=6"`
	FirstName string `json:"firstName" validate:"mintrim=6"`
	LastName  string `json:"lastName" validate:"mintrim=6"`
	Email     string `json:"email" validate:"email"`
	Password  string `json:"password" validate:"mintrim=8"`
}

type signInRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"mintrim=8"`
}

// A present but blank username or email is rejected; nil fields are left
// alone.
type updateMeRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Username  *string `json:"username" validate:"omitempty,mintrim=6"`
	Email     *string `json:"email" validate:"omitempty,email"`
}

// bind decodes the body into dst and runs the registered validator on it.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	return c.Validate(dst)
}

func activeUser(c echo.Context) (*goIAM.ActiveUser, error) {
	user, ok := middleware.ActiveUserFromContext(c.Request().Context())
	if !ok {
		return nil, goIAM.ErrUnauthorized
	}
	return user, nil
}

func (h *handler) signUp(c echo.Context) error {
	var req signUpRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := h.svc.SignUp(c.Request().Context(), goIAM.SignUpInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *handler) signIn(c echo.Context) error {
	var req signInRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.svc.SignIn(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *handler) refreshTokens(c echo.Context) error {
	var req refreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.svc.RefreshTokens(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *handler) changePassword(c echo.Context) error {
	user, err := activeUser(c)
	if err != nil {
		return err
	}
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	pair, err := h.svc.ChangePassword(c.Request().Context(), user.ID, req.OldPassword, req.NewPassword)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pair)
}

func (h *handler) deleteAccount(c echo.Context) error {
	user, err := activeUser(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteAccount(c.Request().Context(), user.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handler) getMe(c echo.Context) error {
	user, err := activeUser(c)
	if err != nil {
		return err
	}
	profile, err := h.svc.GetMe(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *handler) updateMe(c echo.Context) error {
	user, err := activeUser(c)
	if err != nil {
		return err
	}
	var req updateMeRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	profile, err := h.svc.EditMe(c.Request().Context(), user.ID, goIAM.AccountPatch{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Username:  req.Username,
		Email:     req.Email,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}

func (h *handler) listUsers(c echo.Context) error {
	accounts, err := h.svc.ListAccounts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, accounts)
}

func (h *handler) getUser(c echo.Context) error {
	account, err := h.svc.GetAccount(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, account)
}

func (h *handler) removeUser(c echo.Context) error {
	if err := h.svc.RemoveAccount(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
