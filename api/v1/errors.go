package v1

var (
	// common errors
	ErrSuccess             = newError(0, "ok")
	ErrBadRequest          = newError(400, "bad request")
	ErrUnauthorized        = newError(401, "unauthorized")
	ErrNotFound            = newError(404, "not found")
	ErrInternalServerError = newError(500, "internal server error")

	// instance errors
	ErrInstanceAlreadyRegistered = newError(1001, "The instance is already registered.")
	ErrInstanceNotFound          = newError(1002, "The instance is not registered.")
	ErrUnknownSoftware           = newError(1003, "Could not detect the instance software.")
	ErrMissingCredentials        = newError(1004, "The instance has no federation credentials configured.")

	// community errors
	ErrInvalidCommunityName = newError(2001, "Community names must look like name@host.")
	ErrCommunityNotFound    = newError(2002, "The community does not exist on its home instance.")

	// auth errors
	ErrNotAnAdmin       = newError(3001, "The account is not an administrator of the instance.")
	ErrInvalidLoginCode = newError(3002, "The login code is wrong or expired.")
)
