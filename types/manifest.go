package types

// FieldManifest is the export of a single artifact field.
type FieldManifest struct {
	ElectionID       string     `json:"electionId"`
	GuardianID       GuardianID `json:"guardianId"`
	GuardianSequence int        `json:"guardianSequence"`
	GuardianEmail    string     `json:"guardianEmail"`
	FieldName        string     `json:"fieldName"`
	FieldValue       string     `json:"fieldValue"`
	Timestamp        Timestamp  `json:"timestamp"`
}

// GuardianManifest is the export of a complete guardian record. The guardian
// keys are inlined at the top level of the document.
type GuardianManifest struct {
	Guardian
	ElectionID string    `json:"electionId"`
	Timestamp  Timestamp `json:"timestamp"`
}

// CollectionManifest is the export of every guardian of an election.
type CollectionManifest struct {
	ElectionID     string     `json:"electionId"`
	Guardians      []Guardian `json:"guardians"`
	TotalGuardians int        `json:"totalGuardians"`
	Timestamp      Timestamp  `json:"timestamp"`
}

// LoginRequest is the body sent to the authentication endpoint.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned by the authentication endpoint. Email is set on
// success, Message on failure.
type LoginResponse struct {
	Email   string `json:"email,omitempty"`
	Message string `json:"message,omitempty"`
}
