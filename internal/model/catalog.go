package model

import "time"

// Catalog entities for the DICOM metadata store. These are pure domain
// models with no database-specific dependencies or tags; they can be used
// across layers (HTTP, GraphQL, service, repository) without coupling to
// persistence. Surrogate ids are assigned by the database and immutable.

// Patient is the owner of studies. Natural key: PatientName.
type Patient struct {
	ID          int64     `json:"id_patient"`
	PatientName string    `json:"patient_name"`
	CreatedDate time.Time `json:"created_date"`
}

// Study groups series under a patient. Natural key: (PatientID, StudyDate).
// StudyDate carries a calendar date only; the time component is zero.
type Study struct {
	ID          int64     `json:"id_study"`
	PatientID   int64     `json:"id_patient"`
	StudyName   string    `json:"study_name"`
	StudyDate   time.Time `json:"study_date"`
	CreatedDate time.Time `json:"created_date"`
}

// Modality is an imaging equipment type (CT, MR, ...), shared across series.
// Natural key: Name.
type Modality struct {
	ID   int64  `json:"id_modality"`
	Name string `json:"name"`
}

// Series groups files under a study. Natural key: (StudyID, SeriesName, ModalityID).
type Series struct {
	ID          int64     `json:"id_series"`
	PatientID   int64     `json:"id_patient"`
	StudyID     int64     `json:"id_study"`
	ModalityID  int64     `json:"id_modality"`
	SeriesName  string    `json:"series_name"`
	CreatedDate time.Time `json:"created_date"`
}

// File is one uploaded artifact. Files have no natural key: every upload
// inserts a fresh row, but FilePath is unique across the catalog.
type File struct {
	ID          int64     `json:"id_file"`
	PatientID   int64     `json:"id_patient"`
	StudyID     int64     `json:"id_study"`
	SeriesID    int64     `json:"id_series"`
	FilePath    string    `json:"file_path"`
	CreatedDate time.Time `json:"created_date"`
}

// FileRecord is the flat read-only projection of a file joined with its
// patient, study, series, and modality rows.
type FileRecord struct {
	FileID            int64     `json:"id_file"`
	PatientID         int64     `json:"id_patient"`
	StudyID           int64     `json:"id_study"`
	SeriesID          int64     `json:"id_series"`
	FilePath          string    `json:"file_path"`
	PatientName       string    `json:"patient_name"`
	StudyDate         time.Time `json:"study_date"`
	StudyDescription  string    `json:"study_description"`
	SeriesDescription string    `json:"series_description"`
	Modality          string    `json:"modality"`
	CreatedDate       time.Time `json:"created_date"`
}

// UploadResult is the composed projection returned after a successful
// upload: the salient fields of all five entities materialized by the
// pipeline. Dates are pre-formatted for the API boundary: StudyDate as an
// ISO calendar date, CreatedDate as an RFC 3339 timestamp.
type UploadResult struct {
	FileID            int64  `json:"id_file"`
	PatientID         int64  `json:"id_patient"`
	StudyID           int64  `json:"id_study"`
	SeriesID          int64  `json:"id_series"`
	FilePath          string `json:"file_path"`
	PatientName       string `json:"patient_name"`
	StudyDate         string `json:"study_date"`
	StudyDescription  string `json:"study_description"`
	SeriesDescription string `json:"series_description"`
	Modality          string `json:"modality"`
	CreatedDate       string `json:"created_date"`
}
