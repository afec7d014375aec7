package identity

import (
	"context"
	"testing"

	"github.com/easyshop/backend/internal/domain/identity"
	"github.com/easyshop/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memTenantRepo struct {
	tenants map[uuid.UUID]*identity.Tenant
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: make(map[uuid.UUID]*identity.Tenant)}
}

func (r *memTenantRepo) Create(ctx context.Context, tenant *identity.Tenant) error {
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *memTenantRepo) Update(ctx context.Context, tenant *identity.Tenant) error {
	if _, ok := r.tenants[tenant.ID]; !ok {
		return shared.ErrNotFound
	}
	r.tenants[tenant.ID] = tenant
	return nil
}

func (r *memTenantRepo) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	tenant, ok := r.tenants[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return tenant, nil
}

func (r *memTenantRepo) FindByCode(ctx context.Context, code string) (*identity.Tenant, error) {
	for _, tenant := range r.tenants {
		if tenant.Code == code {
			return tenant, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memTenantRepo) FindAllActive(ctx context.Context) ([]*identity.Tenant, error) {
	var active []*identity.Tenant
	for _, tenant := range r.tenants {
		if tenant.IsActive() {
			active = append(active, tenant)
		}
	}
	return active, nil
}

type memUserRepo struct {
	users     map[uuid.UUID]*identity.User
	roles     map[uuid.UUID][]uuid.UUID
	overrides map[uuid.UUID][]identity.PermissionOverride
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		users:     make(map[uuid.UUID]*identity.User),
		roles:     make(map[uuid.UUID][]uuid.UUID),
		overrides: make(map[uuid.UUID][]identity.PermissionOverride),
	}
}

func (r *memUserRepo) Create(ctx context.Context, user *identity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Update(ctx context.Context, user *identity.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return shared.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.User, error) {
	user, ok := r.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *memUserRepo) FindByUsername(ctx context.Context, tenantID uuid.UUID, username string) (*identity.User, error) {
	for _, user := range r.users {
		if user.TenantID == tenantID && user.Username == username {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memUserRepo) SaveUserRoles(ctx context.Context, user *identity.User) error {
	r.roles[user.ID] = append([]uuid.UUID(nil), user.RoleIDs...)
	return nil
}

func (r *memUserRepo) LoadUserRoles(ctx context.Context, user *identity.User) error {
	user.RoleIDs = append([]uuid.UUID(nil), r.roles[user.ID]...)
	return nil
}

func (r *memUserRepo) SaveOverrides(ctx context.Context, user *identity.User) error {
	r.overrides[user.ID] = append([]identity.PermissionOverride(nil), user.Overrides...)
	return nil
}

func (r *memUserRepo) LoadOverrides(ctx context.Context, user *identity.User) error {
	user.Overrides = append([]identity.PermissionOverride(nil), r.overrides[user.ID]...)
	return nil
}

type memRoleRepo struct {
	roles map[uuid.UUID]*identity.Role
	perms map[uuid.UUID][]identity.Permission
}

func newMemRoleRepo() *memRoleRepo {
	return &memRoleRepo{
		roles: make(map[uuid.UUID]*identity.Role),
		perms: make(map[uuid.UUID][]identity.Permission),
	}
}

func (r *memRoleRepo) Create(ctx context.Context, role *identity.Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r *memRoleRepo) Update(ctx context.Context, role *identity.Role) error {
	if _, ok := r.roles[role.ID]; !ok {
		return shared.ErrNotFound
	}
	r.roles[role.ID] = role
	return nil
}

func (r *memRoleRepo) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	role, ok := r.roles[id]
	if !ok || role.TenantID != tenantID {
		return shared.ErrNotFound
	}
	delete(r.roles, id)
	delete(r.perms, id)
	return nil
}

func (r *memRoleRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*identity.Role, error) {
	role, ok := r.roles[id]
	if !ok || role.TenantID != tenantID {
		return nil, shared.ErrNotFound
	}
	return role, nil
}

func (r *memRoleRepo) FindByCode(ctx context.Context, tenantID uuid.UUID, code string) (*identity.Role, error) {
	for _, role := range r.roles {
		if role.TenantID == tenantID && role.Code == code {
			return role, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memRoleRepo) FindByIDs(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) ([]*identity.Role, error) {
	var roles []*identity.Role
	for _, id := range ids {
		if role, ok := r.roles[id]; ok && role.TenantID == tenantID {
			roles = append(roles, role)
		}
	}
	return roles, nil
}

func (r *memRoleRepo) SavePermissions(ctx context.Context, role *identity.Role) error {
	r.perms[role.ID] = append([]identity.Permission(nil), role.Permissions...)
	return nil
}

func (r *memRoleRepo) LoadPermissions(ctx context.Context, role *identity.Role) error {
	role.Permissions = append([]identity.Permission(nil), r.perms[role.ID]...)
	return nil
}

// identityEnv wires every identity service onto shared in-memory repos
type identityEnv struct {
	ctx         context.Context
	tenant      *identity.Tenant
	tenantRepo  *memTenantRepo
	userRepo    *memUserRepo
	roleRepo    *memRoleRepo
	permissions *PermissionService
	auth        *AuthService
	tenants     *TenantService
	users       *UserService
	roles       *RoleService
}

func newIdentityEnv(t *testing.T) *identityEnv {
	t.Helper()

	tenant, err := identity.NewTenant("acme", "Acme Stores")
	require.NoError(t, err)

	env := &identityEnv{
		ctx:        context.Background(),
		tenant:     tenant,
		tenantRepo: newMemTenantRepo(),
		userRepo:   newMemUserRepo(),
		roleRepo:   newMemRoleRepo(),
	}
	require.NoError(t, env.tenantRepo.Create(env.ctx, tenant))

	defaults, err := identity.DefaultRoles(tenant.ID)
	require.NoError(t, err)
	for _, role := range defaults {
		require.NoError(t, env.roleRepo.Create(env.ctx, role))
		require.NoError(t, env.roleRepo.SavePermissions(env.ctx, role))
	}

	log := zap.NewNop()
	env.permissions = NewPermissionService(env.userRepo, env.roleRepo, log)
	env.auth = NewAuthService(env.tenantRepo, env.userRepo, env.permissions, log)
	env.tenants = NewTenantService(env.tenantRepo, env.userRepo, env.roleRepo, log)
	env.users = NewUserService(env.userRepo, env.roleRepo, log)
	env.roles = NewRoleService(env.roleRepo, log)

	return env
}

// seedUser creates an active user holding the given default roles and
// binds a context for them
func (env *identityEnv) seedUser(t *testing.T, username, password string, roleCodes ...string) (*identity.User, identity.TenantContext) {
	t.Helper()

	user, err := identity.NewActiveUser(env.tenant.ID, username, password)
	require.NoError(t, err)
	for _, code := range roleCodes {
		role, err := env.roleRepo.FindByCode(env.ctx, env.tenant.ID, code)
		require.NoError(t, err)
		require.NoError(t, user.AssignRole(role.ID))
	}
	require.NoError(t, env.userRepo.Create(env.ctx, user))
	require.NoError(t, env.userRepo.SaveUserRoles(env.ctx, user))

	tc, err := identity.BindTenant(env.tenant, user)
	require.NoError(t, err)
	return user, tc
}

func (env *identityEnv) setOverride(t *testing.T, user *identity.User, permission string, effect identity.OverrideEffect) {
	t.Helper()
	require.NoError(t, user.SetOverride(permission, effect, "test"))
	require.NoError(t, env.userRepo.SaveOverrides(env.ctx, user))
}
