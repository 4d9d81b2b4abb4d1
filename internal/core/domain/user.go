package domain

import (
	"fmt"
	"net/mail"
	"strings"

	apperrors "github.com/tiback/tiback-client/internal/core/errors"
)

const (
	MinPasswordLength = 6
	MaxNameLength     = 50
	MaxEmailLength    = 120
)

// Role is the account type encoded in the bearer token and persisted with the session.
type Role string

const (
	RoleCliente       Role = "cliente"
	RoleAnalista      Role = "analista"
	RoleSupervisor    Role = "supervisor"
	RoleAdministrador Role = "administrador"
)

// AllRoles lists every role known to the backend.
var AllRoles = []Role{RoleCliente, RoleAnalista, RoleSupervisor, RoleAdministrador}

// ParseRole converts a raw string into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", apperrors.ErrInvalidRole, s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleCliente, RoleAnalista, RoleSupervisor, RoleAdministrador:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// Plural returns the backend collection segment for users of this role,
// e.g. "analistas" for RoleAnalista.
func (r Role) Plural() string {
	switch r {
	case RoleCliente:
		return "clientes"
	case RoleAnalista:
		return "analistas"
	case RoleSupervisor:
		return "supervisores"
	case RoleAdministrador:
		return "administradores"
	}
	return ""
}

// User is the profile returned by the backend for any role. Role-specific
// fields are empty for roles that do not carry them.
type User struct {
	ID                 int64    `json:"id"`
	Email              string   `json:"email"`
	Nombre             string   `json:"nombre,omitempty"`
	Apellido           string   `json:"apellido,omitempty"`
	Direccion          string   `json:"direccion,omitempty"`
	Telefono           string   `json:"telefono,omitempty"`
	Especialidad       string   `json:"especialidad,omitempty"`
	AreaResponsable    string   `json:"area_responsable,omitempty"`
	PermisosEspeciales string   `json:"permisos_especiales,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
}

func (u User) Key() int64 {
	return u.ID
}

// FullName joins first and last name, falling back to the email.
func (u User) FullName() string {
	name := strings.TrimSpace(u.Nombre + " " + u.Apellido)
	if name == "" {
		return u.Email
	}
	return name
}

// Registration is the payload posted to the register endpoint.
type Registration struct {
	Nombre             string   `json:"nombre,omitempty"`
	Apellido           string   `json:"apellido,omitempty"`
	Email              string   `json:"email"`
	Password           string   `json:"password"`
	Role               Role     `json:"role"`
	Direccion          string   `json:"direccion,omitempty"`
	Telefono           string   `json:"telefono,omitempty"`
	Especialidad       string   `json:"especialidad,omitempty"`
	AreaResponsable    string   `json:"area_responsable,omitempty"`
	PermisosEspeciales string   `json:"permisos_especiales,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	Longitude          *float64 `json:"longitude,omitempty"`
}

// Validate performs the same checks as the registration form before the
// request leaves the client. The backend remains the authority.
func (r *Registration) Validate() error {
	errs := apperrors.NewValidationErrors()

	if r.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(r.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 120 characters or less")
	} else if !isValidEmail(r.Email) {
		errs.Add("email", "Invalid email format")
	}

	if r.Password == "" {
		errs.Add("password", "Password is required")
	} else if len(r.Password) < MinPasswordLength {
		errs.Add("password", "Password must be at least 6 characters long")
	}

	if r.Role == "" {
		r.Role = RoleCliente
	}
	if !r.Role.Valid() {
		errs.Add("role", "Unknown role")
	}

	// Administrators are created without a personal name.
	if r.Role != RoleAdministrador {
		if r.Nombre == "" {
			errs.Add("nombre", "Name is required")
		} else if len(r.Nombre) > MaxNameLength {
			errs.Add("nombre", "Name must be 50 characters or less")
		}
		if len(r.Apellido) > MaxNameLength {
			errs.Add("apellido", "Last name must be 50 characters or less")
		}
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	return addr.Address == email
}
