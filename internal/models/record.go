package models

// Record is one row of a dynamically addressed table.
type Record map[string]interface{}

// DeleteResult reports the outcome of a delete request.
type DeleteResult struct {
	Message  string `json:"message"`
	RowCount int64  `json:"rowCount"`
}
