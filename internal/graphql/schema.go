package graphql

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/graphql-go/graphql"

	"dicomcat/internal/model"
	"dicomcat/internal/service"
)

// apiError carries a machine-readable code into the GraphQL error
// extensions alongside the human-readable message.
type apiError struct {
	code string
	err  error
}

func (e *apiError) Error() string { return e.err.Error() }

func (e *apiError) Extensions() map[string]interface{} {
	return map[string]interface{}{"code": e.code}
}

func wrapError(err error) error {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		return &apiError{code: "BAD_USER_INPUT", err: err}
	case errors.Is(err, service.ErrIDRequired):
		return &apiError{code: "BAD_USER_INPUT", err: err}
	case errors.Is(err, service.ErrNotFound):
		return &apiError{code: "NOT_FOUND", err: err}
	default:
		return &apiError{code: "INTERNAL_SERVER_ERROR", err: err}
	}
}

// parseID accepts the representations the ID scalar may arrive in.
func parseID(v interface{}) (int64, error) {
	switch id := v.(type) {
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid id %q", id)
		}
		return n, nil
	case int:
		return int64(id), nil
	case int64:
		return id, nil
	case float64:
		return int64(id), nil
	default:
		return 0, fmt.Errorf("invalid id type %T", v)
	}
}

func idArg(p graphql.ResolveParams, name string) (int64, error) {
	raw, ok := p.Args[name]
	if !ok {
		return 0, &apiError{code: "BAD_USER_INPUT", err: fmt.Errorf("%s is required", name)}
	}
	id, err := parseID(raw)
	if err != nil {
		return 0, &apiError{code: "BAD_USER_INPUT", err: err}
	}
	return id, nil
}

func optString(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// NewSchema wires the catalog read model and the upload pipeline into an
// executable schema. Nested fields (patient -> studies -> series -> files
// and back) resolve lazily through the catalog service.
func NewSchema(catalog service.CatalogService, upload service.UploadService) (graphql.Schema, error) {
	modalityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Modality",
		Fields: graphql.Fields{
			"idModality": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					m, err := modalitySource(p)
					if err != nil {
						return nil, err
					}
					return m.ID, nil
				},
			},
			"Name": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					m, err := modalitySource(p)
					if err != nil {
						return nil, err
					}
					return m.Name, nil
				},
			},
		},
	})

	patientType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Patient",
		Fields: graphql.Fields{
			"idPatient": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, err := patientSource(p)
					if err != nil {
						return nil, err
					}
					return pt.ID, nil
				},
			},
			"PatientName": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, err := patientSource(p)
					if err != nil {
						return nil, err
					}
					return pt.PatientName, nil
				},
			},
			"CreatedDate": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					pt, err := patientSource(p)
					if err != nil {
						return nil, err
					}
					return pt.CreatedDate.Format(time.RFC3339), nil
				},
			},
		},
	})

	studyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Study",
		Fields: graphql.Fields{
			"idStudy": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st, err := studySource(p)
					if err != nil {
						return nil, err
					}
					return st.ID, nil
				},
			},
			"idPatient": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st, err := studySource(p)
					if err != nil {
						return nil, err
					}
					return st.PatientID, nil
				},
			},
			"StudyName": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st, err := studySource(p)
					if err != nil {
						return nil, err
					}
					return st.StudyName, nil
				},
			},
			"StudyDate": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st, err := studySource(p)
					if err != nil {
						return nil, err
					}
					return service.FormatStudyDateISO(st.StudyDate), nil
				},
			},
			"CreatedDate": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					st, err := studySource(p)
					if err != nil {
						return nil, err
					}
					return st.CreatedDate.Format(time.RFC3339), nil
				},
			},
		},
	})

	seriesType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Series",
		Fields: graphql.Fields{
			"idSeries": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					se, err := seriesSource(p)
					if err != nil {
						return nil, err
					}
					return se.ID, nil
				},
			},
			"idPatient": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					se, err := seriesSource(p)
					if err != nil {
						return nil, err
					}
					return se.PatientID, nil
				},
			},
			"idStudy": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					se, err := seriesSource(p)
					if err != nil {
						return nil, err
					}
					return se.StudyID, nil
				},
			},
			"idModality": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					se, err := seriesSource(p)
					if err != nil {
						return nil, err
					}
					return se.ModalityID, nil
				},
			},
			"SeriesName": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					se, err := seriesSource(p)
					if err != nil {
						return nil, err
					}
					return se.SeriesName, nil
				},
			},
			"CreatedDate": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					se, err := seriesSource(p)
					if err != nil {
						return nil, err
					}
					return se.CreatedDate.Format(time.RFC3339), nil
				},
			},
		},
	})

	fileType := graphql.NewObject(graphql.ObjectConfig{
		Name: "File",
		Fields: graphql.Fields{
			"idFile": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := fileSource(p)
					if err != nil {
						return nil, err
					}
					return f.ID, nil
				},
			},
			"idPatient": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := fileSource(p)
					if err != nil {
						return nil, err
					}
					return f.PatientID, nil
				},
			},
			"idStudy": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := fileSource(p)
					if err != nil {
						return nil, err
					}
					return f.StudyID, nil
				},
			},
			"idSeries": &graphql.Field{
				Type: graphql.NewNonNull(graphql.ID),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := fileSource(p)
					if err != nil {
						return nil, err
					}
					return f.SeriesID, nil
				},
			},
			"FilePath": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := fileSource(p)
					if err != nil {
						return nil, err
					}
					return f.FilePath, nil
				},
			},
			"CreatedDate": &graphql.Field{
				Type: graphql.NewNonNull(graphql.String),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					f, err := fileSource(p)
					if err != nil {
						return nil, err
					}
					return f.CreatedDate.Format(time.RFC3339), nil
				},
			},
		},
	})

	// Relationship fields are added after construction so the types can
	// refer to each other.
	patientType.AddFieldConfig("studies", &graphql.Field{
		Type: graphql.NewList(studyType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			pt, err := patientSource(p)
			if err != nil {
				return nil, err
			}
			studies, err := catalog.StudiesByPatient(p.Context, pt.ID)
			if err != nil {
				return nil, wrapError(err)
			}
			return studies, nil
		},
	})
	studyType.AddFieldConfig("patient", &graphql.Field{
		Type: patientType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			st, err := studySource(p)
			if err != nil {
				return nil, err
			}
			patient, err := catalog.Patient(p.Context, st.PatientID)
			if err != nil {
				return nil, wrapError(err)
			}
			return patient, nil
		},
	})
	studyType.AddFieldConfig("series", &graphql.Field{
		Type: graphql.NewList(seriesType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			st, err := studySource(p)
			if err != nil {
				return nil, err
			}
			series, err := catalog.SeriesByStudy(p.Context, st.ID)
			if err != nil {
				return nil, wrapError(err)
			}
			return series, nil
		},
	})
	seriesType.AddFieldConfig("study", &graphql.Field{
		Type: studyType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			se, err := seriesSource(p)
			if err != nil {
				return nil, err
			}
			study, err := catalog.Study(p.Context, se.StudyID)
			if err != nil {
				return nil, wrapError(err)
			}
			return study, nil
		},
	})
	seriesType.AddFieldConfig("modality", &graphql.Field{
		Type: modalityType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			se, err := seriesSource(p)
			if err != nil {
				return nil, err
			}
			modality, err := catalog.Modality(p.Context, se.ModalityID)
			if err != nil {
				return nil, wrapError(err)
			}
			return modality, nil
		},
	})
	seriesType.AddFieldConfig("files", &graphql.Field{
		Type: graphql.NewList(fileType),
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			se, err := seriesSource(p)
			if err != nil {
				return nil, err
			}
			files, err := catalog.FilesBySeries(p.Context, se.ID)
			if err != nil {
				return nil, wrapError(err)
			}
			return files, nil
		},
	})
	fileType.AddFieldConfig("series", &graphql.Field{
		Type: seriesType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			f, err := fileSource(p)
			if err != nil {
				return nil, err
			}
			series, err := catalog.Series(p.Context, f.SeriesID)
			if err != nil {
				return nil, wrapError(err)
			}
			return series, nil
		},
	})
	fileType.AddFieldConfig("study", &graphql.Field{
		Type: studyType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			f, err := fileSource(p)
			if err != nil {
				return nil, err
			}
			study, err := catalog.Study(p.Context, f.StudyID)
			if err != nil {
				return nil, wrapError(err)
			}
			return study, nil
		},
	})
	fileType.AddFieldConfig("patient", &graphql.Field{
		Type: patientType,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			f, err := fileSource(p)
			if err != nil {
				return nil, err
			}
			patient, err := catalog.Patient(p.Context, f.PatientID)
			if err != nil {
				return nil, wrapError(err)
			}
			return patient, nil
		},
	})

	dicomFileDataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DicomFileData",
		Fields: graphql.Fields{
			"idFile":            scalarField(graphql.NewNonNull(graphql.ID), func(d service.DicomFileData) interface{} { return d.FileID }),
			"idPatient":         scalarField(graphql.NewNonNull(graphql.ID), func(d service.DicomFileData) interface{} { return d.PatientID }),
			"idStudy":           scalarField(graphql.NewNonNull(graphql.ID), func(d service.DicomFileData) interface{} { return d.StudyID }),
			"idSeries":          scalarField(graphql.NewNonNull(graphql.ID), func(d service.DicomFileData) interface{} { return d.SeriesID }),
			"FilePath":          scalarField(graphql.NewNonNull(graphql.String), func(d service.DicomFileData) interface{} { return d.FilePath }),
			"PatientName":       scalarField(graphql.NewNonNull(graphql.String), func(d service.DicomFileData) interface{} { return d.PatientName }),
			"StudyDate":         scalarField(graphql.NewNonNull(graphql.String), func(d service.DicomFileData) interface{} { return d.StudyDate }),
			"StudyDescription":  scalarField(graphql.String, func(d service.DicomFileData) interface{} { return d.StudyDescription }),
			"SeriesDescription": scalarField(graphql.String, func(d service.DicomFileData) interface{} { return d.SeriesDescription }),
			"Modality":          scalarField(graphql.NewNonNull(graphql.String), func(d service.DicomFileData) interface{} { return d.Modality }),
			"CreatedDate":       scalarField(graphql.NewNonNull(graphql.String), func(d service.DicomFileData) interface{} { return d.CreatedDate }),
		},
	})

	uploadResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DicomUploadResult",
		Fields: graphql.Fields{
			"idFile":            resultField(graphql.NewNonNull(graphql.ID), func(r *model.UploadResult) interface{} { return r.FileID }),
			"idPatient":         resultField(graphql.NewNonNull(graphql.ID), func(r *model.UploadResult) interface{} { return r.PatientID }),
			"idStudy":           resultField(graphql.NewNonNull(graphql.ID), func(r *model.UploadResult) interface{} { return r.StudyID }),
			"idSeries":          resultField(graphql.NewNonNull(graphql.ID), func(r *model.UploadResult) interface{} { return r.SeriesID }),
			"filePath":          resultField(graphql.NewNonNull(graphql.String), func(r *model.UploadResult) interface{} { return r.FilePath }),
			"patientName":       resultField(graphql.NewNonNull(graphql.String), func(r *model.UploadResult) interface{} { return r.PatientName }),
			"studyDate":         resultField(graphql.NewNonNull(graphql.String), func(r *model.UploadResult) interface{} { return r.StudyDate }),
			"studyDescription":  resultField(graphql.String, func(r *model.UploadResult) interface{} { return r.StudyDescription }),
			"seriesDescription": resultField(graphql.String, func(r *model.UploadResult) interface{} { return r.SeriesDescription }),
			"modality":          resultField(graphql.NewNonNull(graphql.String), func(r *model.UploadResult) interface{} { return r.Modality }),
			"createdDate":       resultField(graphql.NewNonNull(graphql.String), func(r *model.UploadResult) interface{} { return r.CreatedDate }),
		},
	})

	uploadInputType := graphql.NewInputObject(graphql.InputObjectConfig{
		Name: "DicomUploadInput",
		Fields: graphql.InputObjectConfigFieldMap{
			"patientName":       &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"studyDate":         &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"studyDescription":  &graphql.InputObjectFieldConfig{Type: graphql.String},
			"seriesDescription": &graphql.InputObjectFieldConfig{Type: graphql.String},
			"modality":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
			"filePath":          &graphql.InputObjectFieldConfig{Type: graphql.NewNonNull(graphql.String)},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"patients": &graphql.Field{
				Type: graphql.NewList(patientType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					patients, err := catalog.Patients(p.Context)
					if err != nil {
						return nil, wrapError(err)
					}
					return patients, nil
				},
			},
			"patient": &graphql.Field{
				Type: patientType,
				Args: graphql.FieldConfigArgument{
					"idPatient": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "idPatient")
					if err != nil {
						return nil, err
					}
					patient, err := catalog.Patient(p.Context, id)
					if err != nil {
						return nil, wrapError(err)
					}
					return patient, nil
				},
			},
			"studies": &graphql.Field{
				Type: graphql.NewList(studyType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					studies, err := catalog.Studies(p.Context)
					if err != nil {
						return nil, wrapError(err)
					}
					return studies, nil
				},
			},
			"study": &graphql.Field{
				Type: studyType,
				Args: graphql.FieldConfigArgument{
					"idStudy": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "idStudy")
					if err != nil {
						return nil, err
					}
					study, err := catalog.Study(p.Context, id)
					if err != nil {
						return nil, wrapError(err)
					}
					return study, nil
				},
			},
			"allSeries": &graphql.Field{
				Type: graphql.NewList(seriesType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					series, err := catalog.AllSeries(p.Context)
					if err != nil {
						return nil, wrapError(err)
					}
					return series, nil
				},
			},
			"series": &graphql.Field{
				Type: seriesType,
				Args: graphql.FieldConfigArgument{
					"idSeries": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "idSeries")
					if err != nil {
						return nil, err
					}
					series, err := catalog.Series(p.Context, id)
					if err != nil {
						return nil, wrapError(err)
					}
					return series, nil
				},
			},
			"files": &graphql.Field{
				Type: graphql.NewList(fileType),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					files, err := catalog.Files(p.Context)
					if err != nil {
						return nil, wrapError(err)
					}
					return files, nil
				},
			},
			"file": &graphql.Field{
				Type: fileType,
				Args: graphql.FieldConfigArgument{
					"idFile": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, err := idArg(p, "idFile")
					if err != nil {
						return nil, err
					}
					file, err := catalog.File(p.Context, id)
					if err != nil {
						return nil, wrapError(err)
					}
					return file, nil
				},
			},
			"getAllDicomFiles": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(dicomFileDataType))),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					data, err := catalog.GetAllDicomFiles(p.Context)
					if err != nil {
						return nil, wrapError(err)
					}
					return data, nil
				},
			},
			"checkFilePathExists": &graphql.Field{
				Type: graphql.NewNonNull(graphql.Boolean),
				Args: graphql.FieldConfigArgument{
					"filePath": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					filePath, _ := p.Args["filePath"].(string)
					exists, err := catalog.CheckFilePathExists(p.Context, filePath)
					if err != nil {
						return nil, wrapError(err)
					}
					return exists, nil
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"processDicomUpload": &graphql.Field{
				Type: uploadResultType,
				Args: graphql.FieldConfigArgument{
					"input": &graphql.ArgumentConfig{Type: graphql.NewNonNull(uploadInputType)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					raw, ok := p.Args["input"].(map[string]interface{})
					if !ok {
						return nil, &apiError{code: "BAD_USER_INPUT", err: fmt.Errorf("input is required")}
					}
					in := service.UploadInput{
						PatientName:       optString(raw, "patientName"),
						StudyDate:         optString(raw, "studyDate"),
						StudyDescription:  optString(raw, "studyDescription"),
						SeriesDescription: optString(raw, "seriesDescription"),
						Modality:          optString(raw, "modality"),
						FilePath:          optString(raw, "filePath"),
					}
					res, err := upload.ProcessUpload(p.Context, in)
					if err != nil {
						return nil, wrapError(err)
					}
					return res, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

func scalarField(t graphql.Output, pick func(service.DicomFileData) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			d, ok := p.Source.(service.DicomFileData)
			if !ok {
				return nil, fmt.Errorf("unexpected source type %T", p.Source)
			}
			return pick(d), nil
		},
	}
}

func resultField(t graphql.Output, pick func(*model.UploadResult) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: t,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			r, ok := p.Source.(*model.UploadResult)
			if !ok {
				return nil, fmt.Errorf("unexpected source type %T", p.Source)
			}
			return pick(r), nil
		},
	}
}

func patientSource(p graphql.ResolveParams) (model.Patient, error) {
	switch s := p.Source.(type) {
	case model.Patient:
		return s, nil
	case *model.Patient:
		return *s, nil
	}
	return model.Patient{}, fmt.Errorf("unexpected source type %T", p.Source)
}

func studySource(p graphql.ResolveParams) (model.Study, error) {
	switch s := p.Source.(type) {
	case model.Study:
		return s, nil
	case *model.Study:
		return *s, nil
	}
	return model.Study{}, fmt.Errorf("unexpected source type %T", p.Source)
}

func seriesSource(p graphql.ResolveParams) (model.Series, error) {
	switch s := p.Source.(type) {
	case model.Series:
		return s, nil
	case *model.Series:
		return *s, nil
	}
	return model.Series{}, fmt.Errorf("unexpected source type %T", p.Source)
}

func fileSource(p graphql.ResolveParams) (model.File, error) {
	switch s := p.Source.(type) {
	case model.File:
		return s, nil
	case *model.File:
		return *s, nil
	}
	return model.File{}, fmt.Errorf("unexpected source type %T", p.Source)
}

func modalitySource(p graphql.ResolveParams) (model.Modality, error) {
	switch s := p.Source.(type) {
	case model.Modality:
		return s, nil
	case *model.Modality:
		return *s, nil
	}
	return model.Modality{}, fmt.Errorf("unexpected source type %T", p.Source)
}
