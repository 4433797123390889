package dto

// RecordForm is the check-in/check-out form submitted at the front desk.
// Form keys keep the field names used by the existing HTML forms.
type RecordForm struct {
	LabID          string `form:"identificador_laboratorio" validate:"required"`
	InstructorName string `form:"nombre_docente" validate:"required,instructor_name"`
	Email          string `form:"correo_electronico" validate:"required,institutional_email"`
	Program        string `form:"programa" validate:"required"`
	CheckIn        string `form:"hora_ingreso" validate:"required"`
	CheckOut       string `form:"hora_salida" validate:"required"`
	Observation    string `form:"observacion" validate:"required"`
}

// RecordUpdateForm is the administrator edit form. Every column is rewritten.
type RecordUpdateForm struct {
	RecordForm
	RegisteredAt     string `form:"fecha_registro" validate:"required"`
	IncidentResponse string `form:"respuesta_incidencia"`
}
