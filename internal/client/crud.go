package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Ownership envelope field names, the backend's proof that the acting
// user may mutate an entity.
const (
	fieldOwnerID       = "_OWNER_ID"
	fieldOwnerToken    = "_OWNER_TOKEN"
	fieldOwnerPassword = "_OWNER_PASSWORD"
	fieldEntityID      = "_ENTITY_ID"
	fieldUsername      = "_USERNAME"
	fieldPassword      = "_PASSWORD"

	// ownerSelf marks a creation whose new entity owns itself.
	ownerSelf = "SELF"
)

// Create posts a new entity to create/<model>. Password verification
// applies unless waived; on success the model's cache buckets are
// invalidated. Server errors carrying a machine-readable code surface as
// KindCancelled so callers can treat them as expected rejections.
func (c *Client) Create(ctx context.Context, model string, data map[string]any, excluded []string, opts *CRUDRequestOptions) (*Response, error) {
	o := opts.normalizedCRUD()

	password, err := c.gate.check(ctx, o)
	if err != nil {
		return nil, err
	}

	params := c.ownerParams(password, o.SelfOwner)
	mergeEntityFields(params, data, excluded)

	resp, err := c.Post(ctx, "create/"+model, params, &o.RequestOptions, nil)
	if err != nil {
		c.maybeQueue(o, "create/"+model, params, err)
		return nil, crudError(err)
	}

	c.invalidateModel(model)
	return resp, nil
}

// Register is Create with SelfOwner set: no password verification, with
// ownership assigned to the newly created entity itself.
func (c *Client) Register(ctx context.Context, model string, data map[string]any, excluded []string, opts *CRUDRequestOptions) (*Response, error) {
	o := opts.normalizedCRUD()
	o.SelfOwner = true
	return c.Create(ctx, model, data, excluded, o)
}

// Read issues a GET to read/<model> with the session user's ownership
// token merged under the caller's filters, following the same cache
// policies as Get. With SecureReads set and no password cached, the
// password gate runs first.
func (c *Client) Read(ctx context.Context, model string, extra Params, opts *CRUDRequestOptions) (*Response, error) {
	o := opts.normalizedCRUD()

	if o.SecureReads {
		if _, held := c.gate.current(); !held {
			if _, err := c.gate.check(ctx, o); err != nil {
				return nil, err
			}
		}
	}

	user := c.User()
	params := Params{
		fieldOwnerID:    "",
		fieldOwnerToken: "",
	}
	if user != nil {
		params[fieldOwnerID] = user.ID
		params[fieldOwnerToken] = user.Token
	}
	for name, value := range extra {
		params[name] = value
	}

	resp, err := c.Get(ctx, "read/"+model, params, &o.RequestOptions, nil)
	if err != nil {
		return nil, crudError(err)
	}
	return resp, nil
}

// Update posts changed fields to update/<model>. Mutations require
// ownership proof, so the password gate always runs (unless waived via
// the options); the model's cache buckets are invalidated on success.
func (c *Client) Update(ctx context.Context, model, entityID string, data map[string]any, excluded []string, opts *CRUDRequestOptions) (*Response, error) {
	o := opts.normalizedCRUD()

	password, err := c.gate.check(ctx, o)
	if err != nil {
		return nil, err
	}

	params := c.ownerParams(password, o.SelfOwner)
	params[fieldEntityID] = entityID
	mergeEntityFields(params, data, excluded)

	resp, err := c.Post(ctx, "update/"+model, params, &o.RequestOptions, nil)
	if err != nil {
		c.maybeQueue(o, "update/"+model, params, err)
		return nil, crudError(err)
	}

	c.invalidateModel(model)
	return resp, nil
}

// Delete posts the ownership/id envelope to delete/<model> and
// invalidates the model's cache buckets on success.
func (c *Client) Delete(ctx context.Context, model, entityID string, opts *CRUDRequestOptions) (*Response, error) {
	o := opts.normalizedCRUD()

	password, err := c.gate.check(ctx, o)
	if err != nil {
		return nil, err
	}

	params := c.ownerParams(password, o.SelfOwner)
	params[fieldEntityID] = entityID

	resp, err := c.Post(ctx, "delete/"+model, params, &o.RequestOptions, nil)
	if err != nil {
		c.maybeQueue(o, "delete/"+model, params, err)
		return nil, crudError(err)
	}

	c.invalidateModel(model)
	return resp, nil
}

// Login posts credentials to login/<model> and, on success, stores the
// returned account as the session user.
func (c *Client) Login(ctx context.Context, model, username, password string, opts *RequestOptions) (*User, error) {
	resp, err := c.Post(ctx, "login/"+model, Params{
		fieldUsername: username,
		fieldPassword: password,
	}, opts, nil)
	if err != nil {
		return nil, err
	}

	account := resp.Get("account")
	if !account.Exists() {
		return nil, &APIError{
			Kind:     KindServer,
			Message:  c.t.T(msgGenericError),
			Response: resp,
		}
	}

	user := userFromJSON(account)
	c.SetUser(user)
	logrus.WithField("username", user.Username).Info("Logged in")
	return user, nil
}

// ownerParams builds the ownership envelope for a mutating call.
func (c *Client) ownerParams(password string, selfOwner bool) Params {
	if selfOwner {
		return Params{
			fieldOwnerID:       ownerSelf,
			fieldOwnerToken:    ownerSelf,
			fieldOwnerPassword: "",
		}
	}

	params := Params{
		fieldOwnerID:       "",
		fieldOwnerToken:    "",
		fieldOwnerPassword: password,
	}
	if user := c.User(); user != nil {
		params[fieldOwnerID] = user.ID
		params[fieldOwnerToken] = user.Token
	}
	return params
}

// invalidateModel drops both cache buckets a model's reads live under.
func (c *Client) invalidateModel(model string) {
	c.cache.invalidate("get/"+model, "read/"+model)
}

// mergeEntityFields copies scalar (string, number, boolean), non-nil,
// non-excluded fields of data into params. Non-scalar values are dropped
// silently: the wire format is flat form-encoded pairs and cannot carry
// arrays or nested objects. A nil excluded list applies the default of
// excluding "id"; an empty list excludes nothing.
func mergeEntityFields(params Params, data map[string]any, excluded []string) {
	if excluded == nil {
		excluded = []string{"id"}
	}
	skip := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		skip[name] = struct{}{}
	}

	for name, value := range data {
		if value == nil {
			continue
		}
		if _, drop := skip[name]; drop {
			continue
		}
		switch v := value.(type) {
		case string:
			params[name] = v
		case bool:
			params[name] = fmt.Sprintf("%t", v)
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			params[name] = fmt.Sprintf("%d", v)
		case float32, float64:
			params[name] = fmt.Sprintf("%v", v)
		default:
			logrus.WithField("field", name).Debug("Dropping non-scalar entity field")
		}
	}
}

// crudError re-tags structured server errors (those carrying a code other
// than passwordIncorrect) as KindCancelled, the expected-rejection path of
// CRUD operations.
func crudError(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Kind == KindServer && apiErr.Code != "" {
		logrus.WithField("code", apiErr.Code).Warn("Structured server rejection: ", apiErr.Message)
		return &APIError{
			Kind:     KindCancelled,
			Message:  apiErr.Message,
			Code:     apiErr.Code,
			Response: apiErr.Response,
		}
	}
	return err
}
