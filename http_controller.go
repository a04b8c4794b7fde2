package identity

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// ControllerRoutes holds the paths the controller mounts
type ControllerRoutes struct {
	OpaqueLogin string
	TokenPair   string
	Refresh     string
	Verify      string
	Users       string
}

// DefaultRoutes are the paths used unless overridden
func DefaultRoutes() ControllerRoutes {
	return ControllerRoutes{
		OpaqueLogin: "/api-token-auth/",
		TokenPair:   "/api/token/",
		Refresh:     "/api/token/refresh/",
		Verify:      "/api/token/verify/",
		Users:       "/users",
	}
}

// Controller serves the auth endpoints and the users resource
type Controller struct {
	Debug  bool
	Logger Logger
	Routes ControllerRoutes

	store  *IdentityStore
	auth   *Auther
	policy *Policy
	cfg    Config
}

// NewController returns a controller over the given services
func NewController(store *IdentityStore, auther *Auther, policy *Policy, cfg Config) *Controller {
	if policy == nil {
		policy = NewPolicy()
	}
	return &Controller{
		Logger: defLogger{},
		Routes: DefaultRoutes(),
		store:  store,
		auth:   auther,
		policy: policy,
		cfg:    cfg,
	}
}

func (h *Controller) WithLogger(l Logger) *Controller {
	h.Logger = normalizeLogger(l)
	return h
}

// RegisterRoutes mounts every endpoint of h on app. The users resource
// runs behind the actor middleware.
func RegisterRoutes[T any](app router.Router[T], h *Controller, actor router.MiddlewareFunc) {
	app.Post(h.Routes.OpaqueLogin, h.handle(h.OpaqueLogin)).
		SetName("auth.opaque-login")
	app.Post(h.Routes.TokenPair, h.handle(h.TokenPairLogin)).
		SetName("auth.token-pair")
	app.Post(h.Routes.Refresh, h.handle(h.RefreshToken)).
		SetName("auth.token-refresh")
	app.Post(h.Routes.Verify, h.handle(h.VerifyToken)).
		SetName("auth.token-verify")

	member := h.Routes.Users + "/:id"

	app.Get(h.Routes.Users, h.handle(h.ListUsers), actor).SetName("users.list")
	app.Post(h.Routes.Users, h.handle(h.CreateUser), actor).SetName("users.create")
	app.Get(member, h.handle(h.RetrieveUser), actor).SetName("users.retrieve")
	app.Put(member, h.handle(h.UpdateUser), actor).SetName("users.update")
	app.Patch(member, h.handle(h.UpdateUser), actor).SetName("users.partial-update")
	app.Delete(member, h.handle(h.DestroyUser), actor).SetName("users.destroy")
}

// handle renders the error of fn in the envelope
func (h *Controller) handle(fn router.HandlerFunc) router.HandlerFunc {
	return func(c router.Context) error {
		if err := fn(c); err != nil {
			return WriteError(c, h.Logger, err)
		}
		return nil
	}
}

// LoginPayload is the credential body of both login endpoints. Username
// is accepted as an alias carrying the email.
type LoginPayload struct {
	Email    string `json:"email" form:"email"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

func (p LoginPayload) identifier() string {
	if strings.TrimSpace(p.Email) != "" {
		return p.Email
	}
	return p.Username
}

func (p LoginPayload) validate(allowAlias bool) error {
	fields := map[string]string{}
	id := p.Email
	if allowAlias {
		id = p.identifier()
	}
	if strings.TrimSpace(id) == "" {
		fields["email"] = "This field is required."
	}
	if p.Password == "" {
		fields["password"] = "This field is required."
	}
	if len(fields) > 0 {
		return NewValidationError(fields)
	}
	return nil
}

func (h *Controller) OpaqueLogin(c router.Context) error {
	payload := new(LoginPayload)
	if err := c.Bind(payload); err != nil {
		return parseError(err)
	}
	if err := payload.validate(true); err != nil {
		return err
	}

	key, user, err := h.auth.LoginOpaque(c.Context(), payload.identifier(), payload.Password)
	if err != nil {
		if IsInvalidCredentials(err) {
			return fail(c, router.StatusBadRequest, "Unable to log in with provided credentials.")
		}
		return err
	}

	return respond(c, router.StatusOK, []map[string]any{{
		"token":    key,
		"userId":   user.ID.String(),
		"email":    user.Email,
		"username": user.Username,
		"isAdmin":  user.IsSuperuser,
	}}, "User Logged In Successfully")
}

func (h *Controller) TokenPairLogin(c router.Context) error {
	payload := new(LoginPayload)
	if err := c.Bind(payload); err != nil {
		return parseError(err)
	}
	if err := payload.validate(false); err != nil {
		return err
	}

	pair, user, err := h.auth.LoginPair(c.Context(), payload.Email, payload.Password)
	if err != nil {
		if IsInvalidCredentials(err) {
			return fail(c, h.cfg.GetLoginFailureStatus(), ErrInvalidCredentials.Message)
		}
		return err
	}

	data := userFields(user)
	data["access"] = pair.Access
	data["refresh"] = pair.Refresh

	return respond(c, router.StatusOK, data, "Token Generated Successfully")
}

type refreshPayload struct {
	Refresh string `json:"refresh" form:"refresh"`
}

func (h *Controller) RefreshToken(c router.Context) error {
	payload := new(refreshPayload)
	if err := c.Bind(payload); err != nil {
		return parseError(err)
	}

	access, err := h.auth.Refresh(payload.Refresh)
	if err != nil {
		h.Logger.Debug("refresh rejected", "expired", IsTokenExpiredError(err), "error", err)
		return fail(c, router.StatusBadRequest, "Access Token Generation Failed")
	}

	return respond(c, router.StatusOK, []map[string]any{{"access": access}}, "Access Token Generated Successfully")
}

type verifyPayload struct {
	Token string `json:"token" form:"token"`
}

func (h *Controller) VerifyToken(c router.Context) error {
	payload := new(verifyPayload)
	if err := c.Bind(payload); err != nil {
		return parseError(err)
	}

	if err := h.auth.Verify(payload.Token); err != nil {
		h.Logger.Debug("verify rejected", "expired", IsTokenExpiredError(err), "error", err)
		return fail(c, router.StatusBadRequest, "Access Token Verification Failed")
	}

	return respond(c, router.StatusOK, nil, "Token Verified Successfully")
}

func (h *Controller) ListUsers(c router.Context) error {
	actor, _ := ActorFrom(c)
	if err := h.authorize(actor, ActionList, nil); err != nil {
		return err
	}

	page, err := h.store.List(c.Context(), Pagination{
		Page:        queryInt(c, "page"),
		PageSize:    queryInt(c, "page_size"),
		Search:      c.Query("search", ""),
		IsActive:    queryBool(c, "is_active"),
		IsStaff:     queryBool(c, "is_staff"),
		IsSuperuser: queryBool(c, "is_superuser"),
	})
	if err != nil {
		return err
	}

	return respond(c, router.StatusOK, page, "Users Fetched Successfully")
}

func (h *Controller) CreateUser(c router.Context) error {
	actor, _ := ActorFrom(c)
	if err := h.authorize(actor, ActionCreate, nil); err != nil {
		return err
	}

	payload := new(CreateUserInput)
	if err := c.Bind(payload); err != nil {
		return parseError(err)
	}

	user, err := h.store.Create(c.Context(), *payload)
	if err != nil {
		return err
	}

	pair, err := h.auth.TokenService().IssuePair(NewIdentityFromUser(user))
	if err != nil {
		return err
	}

	data := userFields(user)
	data["access"] = pair.Access
	data["refresh"] = pair.Refresh

	if h.Debug {
		h.Logger.Debug("user created", "user", print.MaybePrettyJSON(user))
	}

	return respond(c, fiber.StatusCreated, data, "User Created Successfully")
}

func (h *Controller) RetrieveUser(c router.Context) error {
	_, target, err := h.loadTarget(c, ActionRetrieve)
	if err != nil {
		return err
	}

	return respond(c, router.StatusOK, []map[string]any{userFields(target)}, "User Fetched Successfully")
}

func (h *Controller) UpdateUser(c router.Context) error {
	actor, target, err := h.loadTarget(c, ActionUpdate)
	if err != nil {
		return err
	}

	payload := new(UpdateUserInput)
	if err := c.Bind(payload); err != nil {
		return parseError(err)
	}

	user, err := h.store.Update(c.Context(), actor, target.ID, *payload)
	if err != nil {
		return err
	}

	return respond(c, router.StatusOK, userFields(user), "User Updated Successfully")
}

// DestroyUser answers 204 with an empty body instead of the envelope
func (h *Controller) DestroyUser(c router.Context) error {
	actor, target, err := h.loadTarget(c, ActionDestroy)
	if err != nil {
		return err
	}

	if err := h.store.Delete(c.Context(), actor, target.ID); err != nil {
		return err
	}

	return c.Status(fiber.StatusNoContent).SendString("")
}

// loadTarget authenticates, loads the addressed user and consults the
// policy, in that order: 401, then 404, then 403.
func (h *Controller) loadTarget(c router.Context, action Action) (*User, *User, error) {
	actor, ok := ActorFrom(c)
	if !ok {
		return nil, nil, ErrNotAuthenticated
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, nil, ErrIdentityNotFound
	}

	target, err := h.store.Get(c.Context(), id)
	if err != nil {
		return nil, nil, err
	}

	if err := h.authorize(actor, action, target); err != nil {
		return nil, nil, err
	}

	return actor, target, nil
}

func (h *Controller) authorize(actor *User, action Action, target *User) error {
	if h.policy.Decide(actor, action, target).Allowed() {
		return nil
	}
	if actor == nil {
		return ErrNotAuthenticated
	}
	h.Logger.Info("permission denied", "actor_id", actor.ID.String(), "action", string(action))
	return ErrPermissionDenied
}

// userFields is the read representation of a user. The password hash is
// never part of it.
func userFields(u *User) map[string]any {
	return map[string]any{
		"id":           u.ID.String(),
		"email":        u.Email,
		"username":     u.Username,
		"mobile":       u.Mobile,
		"first_name":   u.FirstName,
		"last_name":    u.LastName,
		"is_active":    u.IsActive,
		"is_staff":     u.IsStaff,
		"is_superuser": u.IsSuperuser,
		"date_joined":  u.DateJoined,
		"last_login":   u.LastLogin,
	}
}

func queryInt(c router.Context, key string) int {
	v, err := strconv.Atoi(c.Query(key, ""))
	if err != nil {
		return 0
	}
	return v
}

// queryBool is nil unless the parameter parses as a boolean
func queryBool(c router.Context, key string) *bool {
	v, err := strconv.ParseBool(c.Query(key, ""))
	if err != nil {
		return nil
	}
	return &v
}

func parseError(err error) error {
	return newFieldError("non_field_errors", "Failed to parse request body: "+err.Error())
}
