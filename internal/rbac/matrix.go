package rbac

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kha997/zenamanagephp-sub030/internal/db/models"
)

// MatrixHeader is the exact header of a permission matrix file.
var MatrixHeader = []string{"role_name", "module", "action", "permission_code", "allow"} //nolint:gochecknoglobals

var utf8BOM = []byte{0xEF, 0xBB, 0xBF} //nolint:gochecknoglobals

var errMatrixInvalid = errors.New("permission matrix is invalid")

// MatrixStats summarizes a validated permission matrix.
type MatrixStats struct {
	TotalRows   int `json:"total_rows"`
	ValidRows   int `json:"valid_rows"`
	InvalidRows int `json:"invalid_rows"`
	Roles       int `json:"roles"`
	NewRoles    int `json:"new_roles"`
	Grants      int `json:"grants"`
	Revocations int `json:"revocations"`
}

// ValidationReport is the result of ValidateCSV. Errors lists every problem
// found in the file, not only the first.
type ValidationReport struct {
	Valid  bool        `json:"valid"`
	Errors []string    `json:"errors"`
	Stats  MatrixStats `json:"stats"`
}

// ImportStats summarizes an applied permission matrix.
type ImportStats struct {
	RowsProcessed int `json:"rows_processed"`
	RolesCreated  int `json:"roles_created"`
	GrantsAdded   int `json:"grants_added"`
	GrantsRemoved int `json:"grants_removed"`
}

// ImportResult is the result of ImportCSV. Validation carries the
// ValidateCSV stats of the file on both outcomes.
type ImportResult struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Stats      ImportStats `json:"stats"`
	Validation MatrixStats `json:"validation"`
	Errors     []string    `json:"errors"`
}

type matrixRow struct {
	line  int
	role  string
	code  string
	allow bool
}

type parsedMatrix struct {
	// rows holds one entry per (role, code), in file order.
	rows  []matrixRow
	stats MatrixStats
	errs  []string
	// fatal is set when the file could not be read as a matrix at all.
	fatal bool
}

type matrixLookup struct {
	perms map[string]models.Permission
	roles map[string]*models.Role
}

// ExportCSV writes the grants of the roles owned by tenantID (0 for the
// global roles) as a permission matrix, sorted by role name, module and action.
// Exporting unchanged state yields identical bytes.
func (s *Service) ExportCSV(ctx context.Context, tenantID uint64) ([]byte, error) {
	type grantRow struct {
		RoleName string
		Module   string
		Action   string
		Code     string
	}

	var rows []grantRow

	err := s.db.WithContext(ctx).Table("role_permissions").
		Select("roles.name AS role_name, permissions.module AS module, permissions.action AS action, permissions.code AS code").
		Joins("JOIN roles ON roles.id = role_permissions.role_id").
		Joins("JOIN permissions ON permissions.id = role_permissions.permission_id").
		Where("roles.tenant_id = ?", tenantID).
		Scan(&rows).Error
	if err != nil {
		return nil, storageError("export permission matrix", err)
	}

	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.RoleName != b.RoleName {
			return a.RoleName < b.RoleName
		}

		if a.Module != b.Module {
			return a.Module < b.Module
		}

		return a.Action < b.Action
	})

	records := make([][]string, 0, len(rows)+1)
	records = append(records, MatrixHeader)

	for _, r := range rows {
		records = append(records, []string{r.RoleName, r.Module, r.Action, r.Code, "true"})
	}

	return writeCSV(records)
}

// TemplateCSV returns an example permission matrix.
func TemplateCSV() []byte {
	out, _ := writeCSV([][]string{ //nolint:errcheck // writing to a buffer does not fail
		MatrixHeader,
		{"Project Manager", "project", "create", "project.create", "true"},
		{"Project Manager", "project", "view", "project.view", "true"},
		{"Project Manager", "task", "delete", "task.delete", "false"},
		{"Viewer", "project", "view", "project.view", "true"},
		{"Viewer", "document", "view", "document.view", "yes"},
	})

	return out
}

func writeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer

	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ValidateCSV checks a permission matrix without changing anything.
func (s *Service) ValidateCSV(ctx context.Context, data []byte, tenantID uint64) (*ValidationReport, error) {
	p := s.parseMatrix(data)

	if _, err := checkParsed(s.db.WithContext(ctx), p, tenantID); err != nil {
		return nil, storageError("validate permission matrix", err)
	}

	return &ValidationReport{
		Valid:  len(p.errs) == 0,
		Errors: nonNil(p.errs),
		Stats:  p.stats,
	}, nil
}

// ImportCSV validates a permission matrix and applies it in one transaction:
// missing roles are created (custom roles for a tenant, system roles for
// tenant 0), rows with allow=true are granted and rows with allow=false are
// revoked. An invalid file changes nothing and reports the same errors and
// stats as ValidateCSV.
func (s *Service) ImportCSV(ctx context.Context, data []byte, tenantID, actorID uint64) (*ImportResult, error) {
	if err := checkWriteTenant(tenantID); err != nil {
		return nil, err
	}

	p := s.parseMatrix(data)

	var (
		stats ImportStats
		ev    auditEvent
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lookup, err := checkParsed(tx, p, tenantID)
		if err != nil {
			return err
		}

		if len(p.errs) > 0 {
			return errMatrixInvalid
		}

		stats, err = applyMatrix(tx, p.rows, lookup, tenantID)
		if err != nil {
			return err
		}

		stats.RowsProcessed = p.stats.TotalRows

		ev = auditEvent{
			name:     EventMatrixImported,
			actorID:  actorID,
			tenantID: tenantID,
			payload: map[string]any{
				"rows_processed": stats.RowsProcessed,
				"roles_created":  stats.RolesCreated,
				"grants_added":   stats.GrantsAdded,
				"grants_removed": stats.GrantsRemoved,
			},
		}

		return s.record(tx, ev)
	})
	if errors.Is(err, errMatrixInvalid) {
		return failedImport(p), nil
	}

	if err != nil {
		return nil, storageError("import permission matrix", err)
	}

	s.publish(ctx, ev)

	return &ImportResult{
		Success: true,
		Message: fmt.Sprintf("imported %d rows: %d roles created, %d grants added, %d grants removed",
			stats.RowsProcessed, stats.RolesCreated, stats.GrantsAdded, stats.GrantsRemoved),
		Stats:      stats,
		Validation: p.stats,
		Errors:     []string{},
	}, nil
}

// checkParsed adds the catalog and role errors of the well formed rows to
// p.errs, so a file with bad rows still reports every other problem.
// Nothing is checked when the file could not be read at all.
func checkParsed(tx *gorm.DB, p *parsedMatrix, tenantID uint64) (*matrixLookup, error) {
	if p.fatal {
		return nil, nil
	}

	lookup, errs, err := checkMatrix(tx, p, tenantID)
	if err != nil {
		return nil, err
	}

	p.errs = append(p.errs, errs...)

	return lookup, nil
}

func failedImport(p *parsedMatrix) *ImportResult {
	return &ImportResult{
		Success:    false,
		Message:    fmt.Sprintf("validation failed with %d error(s), nothing was imported", len(p.errs)),
		Validation: p.stats,
		Errors:     nonNil(p.errs),
	}
}

func applyMatrix(tx *gorm.DB, rows []matrixRow, lookup *matrixLookup, tenantID uint64) (ImportStats, error) {
	var stats ImportStats

	scope := models.RoleScopeSystem
	if tenantID != 0 {
		scope = models.RoleScopeCustom
	}

	for _, row := range rows {
		role := lookup.roles[row.role]
		if role == nil {
			role = &models.Role{
				Name:        row.role,
				Description: "Created by permission matrix import",
				Scope:       scope,
				TenantID:    tenantID,
			}

			if err := tx.Create(role).Error; err != nil {
				return stats, err
			}

			lookup.roles[row.role] = role
			stats.RolesCreated++
		}

		perm := lookup.perms[row.code]

		if row.allow {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.RolePermission{RoleID: role.ID, PermissionID: perm.ID})
			if res.Error != nil {
				return stats, res.Error
			}

			stats.GrantsAdded += int(res.RowsAffected)

			continue
		}

		res := tx.Where("role_id = ? AND permission_id = ?", role.ID, perm.ID).Delete(&models.RolePermission{})
		if res.Error != nil {
			return stats, res.Error
		}

		stats.GrantsRemoved += int(res.RowsAffected)
	}

	return stats, nil
}

// parseMatrix reads and checks the file shape and every row on its own.
func (s *Service) parseMatrix(data []byte) *parsedMatrix {
	p := &parsedMatrix{}

	if len(data) > s.maxImportBytes {
		p.fatal = true
		p.errs = append(p.errs, fmt.Sprintf("file exceeds the maximum size of %d bytes", s.maxImportBytes))

		return p
	}

	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, utf8BOM)))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()

	switch {
	case errors.Is(err, io.EOF):
		p.fatal = true
		p.errs = append(p.errs, "file is empty")

		return p
	case err != nil:
		p.fatal = true
		p.errs = append(p.errs, fmt.Sprintf("header: %v", err))

		return p
	case !headerMatches(header):
		p.fatal = true
		p.errs = append(p.errs, fmt.Sprintf("invalid header %q, expected %q",
			strings.Join(header, ","), strings.Join(MatrixHeader, ",")))

		return p
	}

	seen := make(map[string]int)

	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		var perr *csv.ParseError
		if errors.As(err, &perr) {
			p.stats.TotalRows++
			p.stats.InvalidRows++
			p.errs = append(p.errs, fmt.Sprintf("line %d: %v", perr.Line, perr.Err))

			continue
		}

		if err != nil {
			p.fatal = true
			p.errs = append(p.errs, err.Error())

			return p
		}

		if blankRecord(rec) {
			continue
		}

		line, _ := r.FieldPos(0)
		p.stats.TotalRows++

		row, errs := parseMatrixRecord(line, rec)
		if len(errs) > 0 {
			p.stats.InvalidRows++
			p.errs = append(p.errs, errs...)

			continue
		}

		key := row.role + "\x00" + row.code
		if i, ok := seen[key]; ok {
			if first := p.rows[i]; first.allow != row.allow {
				p.stats.InvalidRows++
				p.errs = append(p.errs, fmt.Sprintf("line %d: contradicts line %d for role %q and permission %q",
					line, first.line, row.role, row.code))

				continue
			}

			p.stats.ValidRows++

			continue
		}

		seen[key] = len(p.rows)
		p.rows = append(p.rows, row)
		p.stats.ValidRows++

		if row.allow {
			p.stats.Grants++
		} else {
			p.stats.Revocations++
		}
	}

	return p
}

func headerMatches(header []string) bool {
	if len(header) != len(MatrixHeader) {
		return false
	}

	for i, h := range header {
		if strings.TrimSpace(h) != MatrixHeader[i] {
			return false
		}
	}

	return true
}

func blankRecord(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}

	return true
}

func parseMatrixRecord(line int, rec []string) (matrixRow, []string) {
	if len(rec) != len(MatrixHeader) {
		return matrixRow{}, []string{fmt.Sprintf("line %d: expected %d columns, got %d", line, len(MatrixHeader), len(rec))}
	}

	var errs []string

	row := matrixRow{line: line, role: strings.TrimSpace(rec[0])}

	switch {
	case row.role == "":
		errs = append(errs, fmt.Sprintf("line %d: role_name is required", line))
	case len(row.role) > maxRoleNameLen:
		errs = append(errs, fmt.Sprintf("line %d: role_name is too long", line))
	}

	module, action, code := rec[1], rec[2], strings.TrimSpace(rec[3])

	if fields := validatePermissionPair(module, action); fields != nil {
		for _, k := range []string{"module", "action"} {
			if msg, ok := fields[k]; ok {
				errs = append(errs, fmt.Sprintf("line %d: %s", line, msg))
			}
		}
	} else if want := GenerateCode(module, action); code != want {
		errs = append(errs, fmt.Sprintf("line %d: permission_code %q does not match module and action, expected %q",
			line, code, want))
	}

	row.code = code

	allow, ok := parseAllow(rec[4])
	if !ok {
		errs = append(errs, fmt.Sprintf("line %d: allow must be one of true/false, 1/0, yes/no, y/n, allow/deny, got %q",
			line, rec[4]))
	}

	row.allow = allow

	return row, errs
}

func parseAllow(tok string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(tok)) {
	case "true", "1", "yes", "y", "allow":
		return true, true
	case "false", "0", "no", "n", "deny":
		return false, true
	default:
		return false, false
	}
}

// checkMatrix checks the rows against the catalog and the existing roles.
// Unknown permissions and role names that cannot be used from tenantID are
// reported, not returned as an error.
func checkMatrix(tx *gorm.DB, p *parsedMatrix, tenantID uint64) (*matrixLookup, []string, error) {
	lookup := &matrixLookup{
		perms: map[string]models.Permission{},
		roles: map[string]*models.Role{},
	}

	if len(p.rows) == 0 {
		return lookup, nil, nil
	}

	codes := make([]string, 0, len(p.rows))
	names := make([]string, 0, len(p.rows))

	for _, row := range p.rows {
		codes = append(codes, row.code)
		names = append(names, row.role)
	}

	var perms []models.Permission
	if err := tx.Where("code IN ?", uniqueStrings(codes)).Find(&perms).Error; err != nil {
		return nil, nil, err
	}

	for _, perm := range perms {
		lookup.perms[perm.Code] = perm
	}

	var roles []models.Role
	if err := tx.Where("name IN ?", uniqueStrings(names)).Find(&roles).Error; err != nil {
		return nil, nil, err
	}

	blocked := map[string]string{}

	for i := range roles {
		r := &roles[i]

		switch {
		case r.TenantID == tenantID:
			lookup.roles[r.Name] = r
		case r.TenantID == 0:
			blocked[r.Name] = fmt.Sprintf("role %q is a global role and cannot be changed from tenant %d", r.Name, tenantID)
		case tenantID == 0:
			blocked[r.Name] = fmt.Sprintf("role %q belongs to tenant %d", r.Name, r.TenantID)
		}
	}

	var errs []string

	badLines := map[int]struct{}{}
	newRoles := map[string]struct{}{}
	reported := map[string]struct{}{}

	for _, row := range p.rows {
		if _, ok := lookup.perms[row.code]; !ok {
			errs = append(errs, fmt.Sprintf("line %d: %v %q", row.line, ErrUnknownPermission, row.code))
			badLines[row.line] = struct{}{}
		}

		if _, ok := lookup.roles[row.role]; ok {
			continue
		}

		if msg, ok := blocked[row.role]; ok {
			if _, done := reported[row.role]; !done {
				errs = append(errs, fmt.Sprintf("line %d: %s", row.line, msg))
				reported[row.role] = struct{}{}
			}

			badLines[row.line] = struct{}{}

			continue
		}

		newRoles[row.role] = struct{}{}
	}

	p.stats.Roles = len(uniqueStrings(names))
	p.stats.NewRoles = len(newRoles)
	p.stats.ValidRows -= len(badLines)
	p.stats.InvalidRows += len(badLines)

	return lookup, errs, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
