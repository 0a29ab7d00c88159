// Package sandbox is an in-memory migrant-care backend for demos and
// end-to-end tests. It serves the same HTTP API the client talks to, over
// reproducible synthetic data.
package sandbox

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/migrantcare/nexus/internal/domain/vitals"
	"github.com/migrantcare/nexus/pkg/models"
)

// ---------------------------------------------------------------------------
// Configuration
// ---------------------------------------------------------------------------

// SeedConfig controls the volume and shape of generated data.
type SeedConfig struct {
	PatientCount       int   `json:"patientCount"`
	ReadingsPerPatient int   `json:"readingsPerPatient"`
	Seed               int64 `json:"seed"`
	// Until is the timestamp of each patient's newest reading.
	Until time.Time `json:"until"`
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		PatientCount:       5,
		ReadingsPerPatient: 6,
		Seed:               42,
		Until:              time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC),
	}
}

// Demo accounts, one per role.
const (
	MigrantUsername   = "migrant"
	DoctorUsername    = "doctor"
	AuthorityUsername = "authority"
	DemoPassword      = "sandbox"
)

// Alert thresholds for the authority's AI alert count.
const (
	alertTemperature = 38.0
	alertSystolic    = 140
)

// ---------------------------------------------------------------------------
// Records
// ---------------------------------------------------------------------------

type User struct {
	Username string `json:"username"`
	Password string `json:"-"`
	Role     string `json:"role"`
	// Identifier links a migrant account to its patient.
	Identifier string `json:"identifier,omitempty"`
}

// Patient is one migrant's full chart. MedicalRecords[0] is the active
// record, newest first.
type Patient struct {
	Identifier      string                  `json:"identifier"`
	Profile         models.Profile          `json:"profile"`
	MedicalRecords  []models.MedicalRecord  `json:"medical_records"`
	Recommendations []models.Recommendation `json:"recommendations"`
	Vitals          []models.VitalReading   `json:"vitals"`
	Appointments    int                     `json:"appointments"`
	Schemes         []string                `json:"schemes"`
}

func (p *Patient) profile() *models.Profile {
	prof := p.Profile
	if p.Profile.Age != nil {
		age := *p.Profile.Age
		prof.Age = &age
	}
	return &prof
}

// SeedResult summarizes the output of a seed operation.
type SeedResult struct {
	Patients       int           `json:"patients"`
	MedicalRecords int           `json:"medicalRecords"`
	Readings       int           `json:"readings"`
	Users          int           `json:"users"`
	Identifiers    []string      `json:"identifiers"`
	Duration       time.Duration `json:"duration"`
}

// ---------------------------------------------------------------------------
// Pools
// ---------------------------------------------------------------------------

var (
	firstNames = []string{
		"Arjun", "Priya", "Rahul", "Anjali", "Vikram", "Sneha", "Ravi",
		"Lakshmi", "Suresh", "Divya", "Manoj", "Kavya", "Ajith", "Meera",
		"Biju", "Asha", "Sanjay", "Nisha", "Rajesh", "Deepa",
	}
	lastNames = []string{
		"Kumar", "Das", "Singh", "Nair", "Mondal", "Yadav", "Sharma",
		"Pillai", "Roy", "Menon", "Paswan", "Sahu", "Ali", "Thomas",
	}
	genders = []string{"Male", "Female"}

	diagnoses = []string{
		"Hypertension", "Type 2 diabetes", "Iron deficiency anemia",
		"Seasonal influenza", "Tuberculosis (under treatment)",
		"Occupational dermatitis", "Lower back strain", "Asthma",
		"Vitamin D deficiency", "Gastritis",
	}
	recommendations = []string{
		"Reduce salt intake", "Walk 30 minutes daily",
		"Take iron supplements with meals", "Follow up in two weeks",
		"Drink at least 2 litres of water a day", "Wear protective gloves at work",
		"Complete the full antibiotic course", "Schedule an eye examination",
		"Avoid prolonged lifting", "Annual influenza vaccination",
	}
	schemes = []string{
		"Awaz Health Insurance", "Ayushman Bharat", "Aadhaar-linked ration",
		"Guest Worker Welfare Fund", "Free TB screening",
	}
)

// ---------------------------------------------------------------------------
// DataGenerator
// ---------------------------------------------------------------------------

// DataGenerator produces deterministic synthetic patients.
type DataGenerator struct {
	rng     *rand.Rand
	counter uint64
}

// NewDataGenerator returns a generator seeded for reproducibility. If seed is
// 0 a time-based seed is chosen.
func NewDataGenerator(seed int64) *DataGenerator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// nextIdentifier draws a QR identifier from the generator's stream, so the
// same seed always yields the same identifiers.
func (g *DataGenerator) nextIdentifier() string {
	g.counter++
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return fmt.Sprintf("MIG-%06d", g.counter)
	}
	return id.String()
}

func (g *DataGenerator) pick(pool []string) string {
	return pool[g.rng.Intn(len(pool))]
}

// pickN returns n distinct entries in pool order.
func (g *DataGenerator) pickN(pool []string, n int) []string {
	if n > len(pool) {
		n = len(pool)
	}
	idx := g.rng.Perm(len(pool))[:n]
	sort.Ints(idx)
	out := make([]string, 0, n)
	for _, i := range idx {
		out = append(out, pool[i])
	}
	return out
}

func (g *DataGenerator) between(low, high float64) float64 {
	v := low + g.rng.Float64()*(high-low)
	return math.Round(v*10) / 10
}

// GeneratePatient produces a patient with readings ending at until. Record
// ids are left for the Seeder to assign.
func (g *DataGenerator) GeneratePatient(readings int, until time.Time) Patient {
	age := 18 + g.rng.Intn(45)
	p := Patient{
		Identifier: g.nextIdentifier(),
		Profile: models.Profile{
			Name:   g.pick(firstNames) + " " + g.pick(lastNames),
			Age:    &age,
			Gender: g.pick(genders),
		},
		Appointments: g.rng.Intn(4),
		Schemes:      g.pickN(schemes, g.rng.Intn(3)),
	}

	for i, n := 0, 1+g.rng.Intn(2); i < n; i++ {
		p.MedicalRecords = append(p.MedicalRecords, models.MedicalRecord{Diagnosis: g.pick(diagnoses)})
	}
	for _, title := range g.pickN(recommendations, 1+g.rng.Intn(3)) {
		p.Recommendations = append(p.Recommendations, models.Recommendation{Title: title})
	}
	p.Vitals = g.GenerateVitals(readings, until)
	return p
}

// GenerateVitals produces n daily readings in chronological order, the last
// one at until.
func (g *DataGenerator) GenerateVitals(n int, until time.Time) []models.VitalReading {
	out := make([]models.VitalReading, 0, n)
	for i := n - 1; i >= 0; i-- {
		temp := g.between(36.1, 38.6)
		hr := float64(60 + g.rng.Intn(45))
		bp := fmt.Sprintf("%d/%d", 105+g.rng.Intn(45), 65+g.rng.Intn(25))
		ts := until.AddDate(0, 0, -i).Format(time.RFC3339)
		out = append(out, models.VitalReading{
			Temperature:   &temp,
			BloodPressure: &bp,
			HeartRate:     &hr,
			Timestamp:     &ts,
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Seeder
// ---------------------------------------------------------------------------

// Seeder owns the generated dataset and serves reads and diagnosis updates
// against it.
type Seeder struct {
	generator *DataGenerator
	config    SeedConfig

	mu           sync.RWMutex
	patients     map[string]*Patient
	order        []string
	records      map[models.RecordID]string
	users        map[string]User
	nextRecordID int
}

func NewSeeder(config SeedConfig) *Seeder {
	def := DefaultSeedConfig()
	if config.PatientCount <= 0 {
		config.PatientCount = def.PatientCount
	}
	if config.ReadingsPerPatient <= 0 {
		config.ReadingsPerPatient = def.ReadingsPerPatient
	}
	if config.Until.IsZero() {
		config.Until = def.Until
	}
	return &Seeder{
		generator: NewDataGenerator(config.Seed),
		config:    config,
	}
}

// Generate replaces the dataset with a freshly generated one.
func (s *Seeder) Generate() (*SeedResult, error) {
	start := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	s.patients = make(map[string]*Patient, s.config.PatientCount)
	s.order = nil
	s.records = make(map[models.RecordID]string)
	s.nextRecordID = 0

	result := &SeedResult{}
	for i := 0; i < s.config.PatientCount; i++ {
		p := s.generator.GeneratePatient(s.config.ReadingsPerPatient, s.config.Until)
		for j := range p.MedicalRecords {
			s.nextRecordID++
			id := models.RecordID(fmt.Sprintf("%d", s.nextRecordID))
			p.MedicalRecords[j].ID = id
			s.records[id] = p.Identifier
		}
		s.patients[p.Identifier] = &p
		s.order = append(s.order, p.Identifier)

		result.MedicalRecords += len(p.MedicalRecords)
		result.Readings += len(p.Vitals)
	}
	s.addGaps()

	var linked string
	if len(s.order) > 0 {
		linked = s.order[0]
	}
	s.users = map[string]User{
		MigrantUsername:   {Username: MigrantUsername, Password: DemoPassword, Role: models.WireRoleMigrant, Identifier: linked},
		DoctorUsername:    {Username: DoctorUsername, Password: DemoPassword, Role: models.WireRoleDoctor},
		AuthorityUsername: {Username: AuthorityUsername, Password: DemoPassword, Role: models.WireRoleAuthority},
	}

	result.Patients = len(s.order)
	result.Users = len(s.users)
	result.Identifiers = append([]string(nil), s.order...)
	result.Duration = time.Since(start)
	return result, nil
}

// addGaps blanks fields on the last patient so demos show the placeholders
// for missing values.
func (s *Seeder) addGaps() {
	if len(s.order) < 2 {
		return
	}
	p := s.patients[s.order[len(s.order)-1]]
	p.Profile.Age = nil
	p.Recommendations = nil
	if len(p.MedicalRecords) > 0 {
		p.MedicalRecords[0].Diagnosis = ""
	}
	if n := len(p.Vitals); n >= 2 {
		p.Vitals[0].BloodPressure = nil
		p.Vitals[0].HeartRate = nil
		p.Vitals[n-1].Timestamp = nil
	}
}

// Identifiers returns the QR identifiers in generation order.
func (s *Seeder) Identifiers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Authenticate returns the user for matching credentials. role may use either
// the backend spelling or "clinician".
func (s *Seeder) Authenticate(username, password, role string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok || u.Password != password {
		return User{}, false
	}
	if role == "clinician" {
		role = models.WireRoleDoctor
	}
	if role != "" && role != u.Role {
		return User{}, false
	}
	return u, true
}

func (s *Seeder) User(username string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[username]
	return u, ok
}

// PatientRecord returns the composite view for identifier.
func (s *Seeder) PatientRecord(identifier string) (*models.PatientRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[identifier]
	if !ok {
		return nil, false
	}
	return &models.PatientRecord{
		Profile:         p.profile(),
		MedicalRecords:  append([]models.MedicalRecord{}, p.MedicalRecords...),
		Recommendations: append([]models.Recommendation{}, p.Recommendations...),
	}, true
}

func (s *Seeder) Vitals(identifier string) ([]models.VitalReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.patients[identifier]
	if !ok {
		return nil, false
	}
	return append([]models.VitalReading{}, p.Vitals...), true
}

// UpdateDiagnosis sets a record's diagnosis and returns the updated record.
func (s *Seeder) UpdateDiagnosis(id models.RecordID, diagnosis string) (*models.MedicalRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.records[id]
	if !ok {
		return nil, false
	}
	p := s.patients[owner]
	for i := range p.MedicalRecords {
		if p.MedicalRecords[i].ID == id {
			p.MedicalRecords[i].Diagnosis = diagnosis
			out := p.MedicalRecords[i]
			return &out, true
		}
	}
	return nil, false
}

// Metrics counts migrants, scheme-eligible migrants and migrants whose
// readings crossed an alert threshold.
func (s *Seeder) Metrics() models.AuthorityMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := models.AuthorityMetrics{TotalMigrants: len(s.order)}
	for _, id := range s.order {
		p := s.patients[id]
		if len(p.Schemes) > 0 {
			m.EligibleCount++
		}
		if hasAlert(p.Vitals) {
			m.AIAlerts++
		}
	}
	return m
}

func hasAlert(readings []models.VitalReading) bool {
	for _, r := range readings {
		if r.Temperature != nil && *r.Temperature >= alertTemperature {
			return true
		}
		if sys, _ := vitals.ParseBloodPressure(r.BloodPressure); sys >= alertSystolic {
			return true
		}
	}
	return false
}

// MigrantDashboard returns the dashboard of the patient linked to username.
func (s *Seeder) MigrantDashboard(username string) (*models.MigrantDashboard, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[username]
	if !ok || u.Identifier == "" {
		return nil, false
	}
	p, ok := s.patients[u.Identifier]
	if !ok {
		return nil, false
	}

	out := &models.MigrantDashboard{
		Appointments:    p.Appointments,
		Schemes:         make([]any, 0, len(p.Schemes)),
		Profile:         p.profile(),
		Recommendations: make([]string, 0, len(p.Recommendations)),
	}
	if hasAlert(p.Vitals) {
		out.Alerts = 1
	}
	for _, name := range p.Schemes {
		out.Schemes = append(out.Schemes, map[string]string{"name": name})
	}
	if len(p.MedicalRecords) > 0 {
		rec := p.MedicalRecords[0]
		out.MedicalRecord = &rec
	}
	for _, r := range p.Recommendations {
		out.Recommendations = append(out.Recommendations, r.Title)
	}
	return out, true
}
