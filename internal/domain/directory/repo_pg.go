package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ihorms/ihorms/internal/platform/db"
	"github.com/ihorms/ihorms/pkg/apperr"
	"github.com/ihorms/ihorms/pkg/pagination"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

func connFrom(ctx context.Context, pool *pgxpool.Pool) db.Querier {
	if q := db.QuerierFromContext(ctx); q != nil {
		return q
	}
	return pool
}

// PGOrganizationRepository implements OrganizationRepository on PostgreSQL.
type PGOrganizationRepository struct {
	pool *pgxpool.Pool
}

func NewPGOrganizationRepository(pool *pgxpool.Pool) *PGOrganizationRepository {
	return &PGOrganizationRepository{pool: pool}
}

const orgCols = `id, name, address, phone, email, created_at`

func scanOrganization(row pgx.Row) (*Organization, error) {
	var o Organization
	err := row.Scan(&o.ID, &o.Name, &o.Address, &o.Phone, &o.Email, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *PGOrganizationRepository) Create(ctx context.Context, o *Organization) error {
	const query = `
		INSERT INTO organizations (name, address, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return connFrom(ctx, r.pool).QueryRow(ctx, query, o.Name, o.Address, o.Phone, o.Email).
		Scan(&o.ID, &o.CreatedAt)
}

func (r *PGOrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE id = $1`, orgCols)
	o, err := scanOrganization(connFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("organization not found: %s", id)
	}
	return o, err
}

func (r *PGOrganizationRepository) GetByName(ctx context.Context, name string) (*Organization, error) {
	query := fmt.Sprintf(`SELECT %s FROM organizations WHERE name = $1`, orgCols)
	o, err := scanOrganization(connFrom(ctx, r.pool).QueryRow(ctx, query, name))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("organization not found: %s", name)
	}
	return o, err
}

func (r *PGOrganizationRepository) List(ctx context.Context, p pagination.Params) ([]Organization, int, error) {
	var total int
	if err := connFrom(ctx, r.pool).QueryRow(ctx, `SELECT count(*) FROM organizations`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM organizations ORDER BY created_at %s`, orgCols, p.SQL())
	rows, err := connFrom(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orgs []Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, 0, err
		}
		orgs = append(orgs, *o)
	}
	return orgs, total, rows.Err()
}

// PGBranchRepository implements BranchRepository on PostgreSQL.
type PGBranchRepository struct {
	pool *pgxpool.Pool
}

func NewPGBranchRepository(pool *pgxpool.Pool) *PGBranchRepository {
	return &PGBranchRepository{pool: pool}
}

const branchCols = `id, org_id, name, city, address, phone, created_at`

func scanBranch(row pgx.Row) (*Branch, error) {
	var b Branch
	err := row.Scan(&b.ID, &b.OrgID, &b.Name, &b.City, &b.Address, &b.Phone, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *PGBranchRepository) Create(ctx context.Context, b *Branch) error {
	const query = `
		INSERT INTO branches (org_id, name, city, address, phone)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return connFrom(ctx, r.pool).QueryRow(ctx, query, b.OrgID, b.Name, b.City, b.Address, b.Phone).
		Scan(&b.ID, &b.CreatedAt)
}

func (r *PGBranchRepository) GetByID(ctx context.Context, id uuid.UUID) (*Branch, error) {
	query := fmt.Sprintf(`SELECT %s FROM branches WHERE id = $1`, branchCols)
	b, err := scanBranch(connFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("branch not found: %s", id)
	}
	return b, err
}

func (r *PGBranchRepository) ListByOrg(ctx context.Context, orgID uuid.UUID, p pagination.Params) ([]Branch, int, error) {
	var total int
	if err := connFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM branches WHERE org_id = $1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM branches WHERE org_id = $1 ORDER BY created_at %s`, branchCols, p.SQL())
	rows, err := connFrom(ctx, r.pool).Query(ctx, query, orgID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var branches []Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, 0, err
		}
		branches = append(branches, *b)
	}
	return branches, total, rows.Err()
}

// PGUserRepository implements UserRepository on PostgreSQL.
type PGUserRepository struct {
	pool *pgxpool.Pool
}

func NewPGUserRepository(pool *pgxpool.Pool) *PGUserRepository {
	return &PGUserRepository{pool: pool}
}

const userCols = `id, email, role, state, uid, org_id, branch_id, created_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Role, &u.State, &u.UID, &u.OrgID, &u.BranchID, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PGUserRepository) Create(ctx context.Context, u *User) error {
	const query = `
		INSERT INTO users (email, role, state, uid, org_id, branch_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return connFrom(ctx, r.pool).QueryRow(ctx, query,
		u.Email, u.Role, u.State, u.UID, u.OrgID, u.BranchID).
		Scan(&u.ID, &u.CreatedAt)
}

func (r *PGUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userCols)
	u, err := scanUser(connFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("user not found: %s", id)
	}
	return u, err
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userCols)
	u, err := scanUser(connFrom(ctx, r.pool).QueryRow(ctx, query, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("user not found: %s", email)
	}
	return u, err
}

func (r *PGUserRepository) UpdateState(ctx context.Context, id uuid.UUID, state UserState) error {
	tag, err := connFrom(ctx, r.pool).Exec(ctx,
		`UPDATE users SET state = $1 WHERE id = $2`, state, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("user not found: %s", id)
	}
	return nil
}

// PGDoctorRepository implements DoctorRepository on PostgreSQL.
type PGDoctorRepository struct {
	pool *pgxpool.Pool
}

func NewPGDoctorRepository(pool *pgxpool.Pool) *PGDoctorRepository {
	return &PGDoctorRepository{pool: pool}
}

const doctorCols = `id, user_id, full_name, specialty, license_number, org_id, branch_id, created_at`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.UserID, &d.FullName, &d.Specialty, &d.LicenseNumber,
		&d.OrgID, &d.BranchID, &d.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PGDoctorRepository) Create(ctx context.Context, d *Doctor) error {
	const query = `
		INSERT INTO doctors (user_id, full_name, specialty, license_number, org_id, branch_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`
	return connFrom(ctx, r.pool).QueryRow(ctx, query,
		d.UserID, d.FullName, d.Specialty, d.LicenseNumber, d.OrgID, d.BranchID).
		Scan(&d.ID, &d.CreatedAt)
}

func (r *PGDoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE id = $1`, doctorCols)
	d, err := scanDoctor(connFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("doctor not found: %s", id)
	}
	return d, err
}

func (r *PGDoctorRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE user_id = $1`, doctorCols)
	d, err := scanDoctor(connFrom(ctx, r.pool).QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("doctor not found for user: %s", userID)
	}
	return d, err
}

func (r *PGDoctorRepository) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]Doctor, error) {
	query := fmt.Sprintf(`SELECT %s FROM doctors WHERE branch_id = $1 ORDER BY created_at, id`, doctorCols)
	rows, err := connFrom(ctx, r.pool).Query(ctx, query, branchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var doctors []Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		doctors = append(doctors, *d)
	}
	return doctors, rows.Err()
}

// PGNurseRepository implements NurseRepository on PostgreSQL.
type PGNurseRepository struct {
	pool *pgxpool.Pool
}

func NewPGNurseRepository(pool *pgxpool.Pool) *PGNurseRepository {
	return &PGNurseRepository{pool: pool}
}

const nurseCols = `id, user_id, full_name, ward, org_id, branch_id, created_at`

func scanNurse(row pgx.Row) (*Nurse, error) {
	var n Nurse
	err := row.Scan(&n.ID, &n.UserID, &n.FullName, &n.Ward, &n.OrgID, &n.BranchID, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *PGNurseRepository) Create(ctx context.Context, n *Nurse) error {
	const query = `
		INSERT INTO nurses (user_id, full_name, ward, org_id, branch_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	return connFrom(ctx, r.pool).QueryRow(ctx, query,
		n.UserID, n.FullName, n.Ward, n.OrgID, n.BranchID).
		Scan(&n.ID, &n.CreatedAt)
}

func (r *PGNurseRepository) GetByID(ctx context.Context, id uuid.UUID) (*Nurse, error) {
	query := fmt.Sprintf(`SELECT %s FROM nurses WHERE id = $1`, nurseCols)
	n, err := scanNurse(connFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("nurse not found: %s", id)
	}
	return n, err
}

func (r *PGNurseRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Nurse, error) {
	query := fmt.Sprintf(`SELECT %s FROM nurses WHERE user_id = $1`, nurseCols)
	n, err := scanNurse(connFrom(ctx, r.pool).QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("nurse not found for user: %s", userID)
	}
	return n, err
}

// PGPatientRepository implements PatientRepository on PostgreSQL.
type PGPatientRepository struct {
	pool *pgxpool.Pool
}

func NewPGPatientRepository(pool *pgxpool.Pool) *PGPatientRepository {
	return &PGPatientRepository{pool: pool}
}

const patientCols = `id, user_id, uid, full_name, date_of_birth, gender, phone, address,
	blood_group, emergency_contact, org_id, branch_id, created_at`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.UserID, &p.UID, &p.FullName, &p.DateOfBirth, &p.Gender, &p.Phone,
		&p.Address, &p.BloodGroup, &p.EmergencyContact, &p.OrgID, &p.BranchID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PGPatientRepository) Create(ctx context.Context, p *Patient) error {
	const query = `
		INSERT INTO patients (
			user_id, uid, full_name, date_of_birth, gender, phone, address,
			blood_group, emergency_contact, org_id, branch_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at`
	return connFrom(ctx, r.pool).QueryRow(ctx, query,
		p.UserID, p.UID, p.FullName, p.DateOfBirth, p.Gender, p.Phone, p.Address,
		p.BloodGroup, p.EmergencyContact, p.OrgID, p.BranchID).
		Scan(&p.ID, &p.CreatedAt)
}

func (r *PGPatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientCols)
	p, err := scanPatient(connFrom(ctx, r.pool).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("patient not found: %s", id)
	}
	return p, err
}

func (r *PGPatientRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE user_id = $1`, patientCols)
	p, err := scanPatient(connFrom(ctx, r.pool).QueryRow(ctx, query, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFoundf("no patient record linked to this account")
	}
	return p, err
}

func (r *PGPatientRepository) ListByBranch(ctx context.Context, branchID uuid.UUID, p pagination.Params) ([]Patient, int, error) {
	var total int
	if err := connFrom(ctx, r.pool).QueryRow(ctx,
		`SELECT count(*) FROM patients WHERE branch_id = $1`, branchID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM patients WHERE branch_id = $1 ORDER BY created_at DESC %s`,
		patientCols, p.SQL())
	rows, err := connFrom(ctx, r.pool).Query(ctx, query, branchID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var patients []Patient
	for rows.Next() {
		pt, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		patients = append(patients, *pt)
	}
	return patients, total, rows.Err()
}
