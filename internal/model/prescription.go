package model

import (
	"time"

	"github.com/google/uuid"
)

// Gender of a patient
type Gender string

const (
	GenderMale   Gender = "MALE"
	GenderFemale Gender = "FEMALE"
	GenderOther  Gender = "OTHER"
)

// Prescription is a dated clinical record written by exactly one user.
// CreatedBy holds the author's user id and is never reassigned.
type Prescription struct {
	Base
	PrescriptionDate Date      `db:"prescription_date"`
	PatientName      string    `db:"patient_name"`
	PatientAge       int       `db:"patient_age"`
	PatientGender    Gender    `db:"patient_gender"`
	Diagnosis        *string   `db:"diagnosis"`
	Medicines        *string   `db:"medicines"`
	NextVisitDate    *Date     `db:"next_visit_date"`
	CreatedBy        uuid.UUID `db:"created_by"`
}

// PrescriptionRequest is the body of create and update calls. Required
// fields are pointers so that a missing value is distinguishable from zero.
type PrescriptionRequest struct {
	PrescriptionDate *Date   `json:"prescriptionDate" validate:"required,notfuture"`
	PatientName      string  `json:"patientName" validate:"notblank,max=100"`
	PatientAge       *int    `json:"patientAge" validate:"required,min=0,max=150"`
	PatientGender    string  `json:"patientGender" validate:"required,oneof=MALE FEMALE OTHER"`
	Diagnosis        *string `json:"diagnosis" validate:"omitempty,max=2000"`
	Medicines        *string `json:"medicines" validate:"omitempty,max=2000"`
	NextVisitDate    *Date   `json:"nextVisitDate"`
}

// Normalize turns blank dates into absent ones.
func (r *PrescriptionRequest) Normalize() {
	if r.PrescriptionDate != nil && r.PrescriptionDate.IsZero() {
		r.PrescriptionDate = nil
	}
	if r.NextVisitDate != nil && r.NextVisitDate.IsZero() {
		r.NextVisitDate = nil
	}
}

// Apply overwrites every mutable field of p with the request values.
// Absent optional fields clear the stored value.
func (r *PrescriptionRequest) Apply(p *Prescription) {
	p.PrescriptionDate = *r.PrescriptionDate
	p.PatientName = r.PatientName
	p.PatientAge = *r.PatientAge
	p.PatientGender = Gender(r.PatientGender)
	p.Diagnosis = r.Diagnosis
	p.Medicines = r.Medicines
	p.NextVisitDate = r.NextVisitDate
}

type PrescriptionResponse struct {
	ID                uuid.UUID `json:"id"`
	PrescriptionDate  Date      `json:"prescriptionDate"`
	PatientName       string    `json:"patientName"`
	PatientAge        int       `json:"patientAge"`
	PatientGender     Gender    `json:"patientGender"`
	Diagnosis         *string   `json:"diagnosis"`
	Medicines         *string   `json:"medicines"`
	NextVisitDate     *Date     `json:"nextVisitDate"`
	CreatedByUsername string    `json:"createdByUsername"`
	CreatedByFullName string    `json:"createdByFullName"`
	CreatedAt         DateTime  `json:"createdAt"`
	UpdatedAt         DateTime  `json:"updatedAt"`
}

// NewPrescriptionResponse shapes p for the wire with timestamps rendered in
// loc. author may be nil when the creating user no longer exists, in which
// case the creator fields are empty.
func NewPrescriptionResponse(p *Prescription, author *User, loc *time.Location) *PrescriptionResponse {
	if loc == nil {
		loc = time.Local
	}
	resp := &PrescriptionResponse{
		ID:               p.ID,
		PrescriptionDate: p.PrescriptionDate,
		PatientName:      p.PatientName,
		PatientAge:       p.PatientAge,
		PatientGender:    p.PatientGender,
		Diagnosis:        p.Diagnosis,
		Medicines:        p.Medicines,
		NextVisitDate:    p.NextVisitDate,
		CreatedAt:        DateTime{p.CreatedAt.In(loc)},
		UpdatedAt:        DateTime{p.UpdatedAt.In(loc)},
	}
	if author != nil {
		resp.CreatedByUsername = author.Username
		resp.CreatedByFullName = author.FullName
	}
	return resp
}
