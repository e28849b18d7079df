package rbac

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

const (
	maxModuleLen = 100
	maxActionLen = 50
)

// normalizeSegment lower-cases s, trims it and joins inner whitespace runs with "_".
func normalizeSegment(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "_")
}

// GenerateCode derives the permission code of a module/action pair.
// Modules may not contain ".", so the code splits back into its pair at the
// first "." and distinct normalized pairs never share a code.
func GenerateCode(module, action string) string {
	return normalizeSegment(module) + "." + normalizeSegment(action)
}

// validatePermissionPair returns field errors for a module/action pair, or nil.
func validatePermissionPair(module, action string) map[string]string {
	fields := map[string]string{}

	switch m := normalizeSegment(module); {
	case m == "":
		fields["module"] = "module is required"
	case strings.Contains(m, "."):
		fields["module"] = "module must not contain '.'"
	case len(m) > maxModuleLen:
		fields["module"] = fmt.Sprintf("module must be at most %d characters", maxModuleLen)
	}

	switch a := normalizeSegment(action); {
	case a == "":
		fields["action"] = "action is required"
	case len(a) > maxActionLen:
		fields["action"] = fmt.Sprintf("action must be at most %d characters", maxActionLen)
	}

	if len(fields) == 0 {
		return nil
	}

	return fields
}

// CreatePermission adds a permission to the catalog.
func (s *Service) CreatePermission(
	ctx context.Context, module, action, description string, actorID uint64,
) (*models.Permission, error) {
	if fields := validatePermissionPair(module, action); fields != nil {
		return nil, invalidFields(fields)
	}

	perm := models.Permission{
		Code:        GenerateCode(module, action),
		Module:      normalizeSegment(module),
		Action:      normalizeSegment(action),
		Description: strings.TrimSpace(description),
	}

	var ev auditEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Permission{}).Where("code = ?", perm.Code).Count(&count).Error; err != nil {
			return err
		}

		if count > 0 {
			return &ValidationError{
				Kind:   ErrDuplicateCode,
				Fields: map[string]string{"code": fmt.Sprintf("permission code %q already exists", perm.Code)},
			}
		}

		if err := tx.Create(&perm).Error; err != nil {
			return err
		}

		ev = auditEvent{
			name:    EventPermissionCreated,
			actorID: actorID,
			payload: map[string]any{
				"permission_id": perm.ID,
				"code":          perm.Code,
				"module":        perm.Module,
				"action":        perm.Action,
			},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return nil, storageError("create permission", err)
	}

	s.publish(ctx, ev)

	return &perm, nil
}

// GetPermission returns the permission with the given code.
func (s *Service) GetPermission(ctx context.Context, code string) (*models.Permission, error) {
	var perm models.Permission

	err := s.db.WithContext(ctx).Where("code = ?", code).First(&perm).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound("permission %q", code)
	}

	if err != nil {
		return nil, storageError("get permission", err)
	}

	return &perm, nil
}

// PermissionFilter narrows ListPermissions. Empty fields do not filter.
type PermissionFilter struct {
	Module string
	Action string
	// Search matches a substring of the code or the description.
	Search string
}

// PermissionPage is a page of permissions ordered by module and action.
type PermissionPage struct {
	Permissions []models.Permission `json:"data"`
	PageInfo
}

// ListPermissions returns a filtered, paginated listing of the catalog.
func (s *Service) ListPermissions(ctx context.Context, filter PermissionFilter, page Page) (*PermissionPage, error) {
	page = page.normalize()
	tx := s.db.WithContext(ctx).Model(&models.Permission{})

	if m := normalizeSegment(filter.Module); m != "" {
		tx = tx.Where("module = ?", m)
	}

	if a := normalizeSegment(filter.Action); a != "" {
		tx = tx.Where("action = ?", a)
	}

	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + escapeLike(strings.ToLower(search)) + "%"
		tx = tx.Where("(code LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!')", like, like)
	}

	var total int64
	if err := tx.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, storageError("count permissions", err)
	}

	perms := make([]models.Permission, 0, page.PerPage)
	if err := tx.Order("module, action").Limit(page.PerPage).Offset(page.offset()).Find(&perms).Error; err != nil {
		return nil, storageError("list permissions", err)
	}

	return &PermissionPage{Permissions: perms, PageInfo: newPageInfo(page, total)}, nil
}

// ModuleGroup is one module of the permission hierarchy.
type ModuleGroup struct {
	Module      string              `json:"module"`
	Permissions []models.Permission `json:"permissions"`
}

// ListByModule returns the whole catalog grouped by module, sorted by module
// and then by action.
func (s *Service) ListByModule(ctx context.Context) ([]ModuleGroup, error) {
	var perms []models.Permission
	if err := s.db.WithContext(ctx).Find(&perms).Error; err != nil {
		return nil, storageError("list permissions", err)
	}

	// sorted in Go so the order does not depend on the database collation
	sort.SliceStable(perms, func(i, j int) bool {
		if perms[i].Module != perms[j].Module {
			return perms[i].Module < perms[j].Module
		}

		return perms[i].Action < perms[j].Action
	})

	groups := make([]ModuleGroup, 0)

	for _, p := range perms {
		if n := len(groups); n > 0 && groups[n-1].Module == p.Module {
			groups[n-1].Permissions = append(groups[n-1].Permissions, p)
			continue
		}

		groups = append(groups, ModuleGroup{Module: p.Module, Permissions: []models.Permission{p}})
	}

	return groups, nil
}

// DeletePermission removes a permission that no role grants.
func (s *Service) DeletePermission(ctx context.Context, code string, actorID uint64) error {
	var ev auditEvent

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var perm models.Permission

		err := tx.Where("code = ?", code).First(&perm).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound("permission %q", code)
		}

		if err != nil {
			return err
		}

		var refs int64
		if err := tx.Model(&models.RolePermission{}).Where("permission_id = ?", perm.ID).Count(&refs).Error; err != nil {
			return err
		}

		if refs > 0 {
			return conflict("permission %q is granted by %d role(s)", code, refs)
		}

		if err := tx.Delete(&perm).Error; err != nil {
			return err
		}

		ev = auditEvent{
			name:    EventPermissionDeleted,
			actorID: actorID,
			payload: map[string]any{"permission_id": perm.ID, "code": perm.Code},
		}

		return s.record(tx, ev)
	})
	if err != nil {
		return storageError("delete permission", err)
	}

	s.publish(ctx, ev)

	return nil
}

// permissionsByCode loads the permissions for codes and fails with
// ErrUnknownPermission listing every code missing from the catalog.
func permissionsByCode(tx *gorm.DB, codes []string) ([]models.Permission, error) {
	codes = uniqueStrings(codes)
	if len(codes) == 0 {
		return nil, nil
	}

	var perms []models.Permission
	if err := tx.Where("code IN ?", codes).Find(&perms).Error; err != nil {
		return nil, err
	}

	if len(perms) == len(codes) {
		return perms, nil
	}

	known := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		known[p.Code] = struct{}{}
	}

	var missing []string

	for _, c := range codes {
		if _, ok := known[c]; !ok {
			missing = append(missing, c)
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUnknownPermission, strings.Join(missing, ", "))
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))

	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		out = append(out, v)
	}

	return out
}
