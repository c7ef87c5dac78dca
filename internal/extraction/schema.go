package extraction

import (
	"github.com/sashabaranov/go-openai/jsonschema"
)

// FunctionName is the tool the model is forced to call.
const FunctionName = "submit_application"

const functionDescription = "Use to submit a job application. Fill with 'N/A' if information not found in Applicant Resume."

// RequiredFields are the top-level keys every submit_application call must carry.
var RequiredFields = []string{
	"personalInformation",
	"contactInformation",
	"education",
	"workExperience",
	"skills_keywords",
	"ai_generated_roles",
}

func str(desc string) jsonschema.Definition {
	return jsonschema.Definition{Type: jsonschema.String, Description: desc}
}

func strList(desc string) jsonschema.Definition {
	return jsonschema.Definition{
		Type:        jsonschema.Array,
		Description: desc,
		Items:       &jsonschema.Definition{Type: jsonschema.String},
	}
}

// ApplicationSchema is the parameter schema of submit_application.
func ApplicationSchema() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			"personalInformation": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"firstName":   str("Applicant first name"),
					"lastName":    str("Applicant last name"),
					"middleName":  str("Applicant middle name"),
					"dateOfBirth": str("Date of birth, YYYY-MM-DD"),
				},
				Required: []string{"firstName", "lastName"},
			},
			"contactInformation": {
				Type: jsonschema.Object,
				Properties: map[string]jsonschema.Definition{
					"email": str("Email address"),
					"phone": str("Phone number"),
					"address": {
						Type: jsonschema.Object,
						Properties: map[string]jsonschema.Definition{
							"street": str("Street"),
							"city":   str("City"),
							"state":  str("State"),
							"zip":    str("Postal code"),
						},
						Required: []string{"street", "city", "state", "zip"},
					},
				},
				Required: []string{"email", "phone", "address"},
			},
			"education": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"institution":    str("School or university"),
						"degree":         str("Degree obtained"),
						"fieldOfStudy":   str("Field of study"),
						"graduationDate": str("Graduation date, YYYY-MM-DD"),
					},
					Required: []string{"institution", "degree", "graduationDate"},
				},
			},
			"workExperience": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"employer":         str("Employer name"),
						"position":         str("Job title"),
						"startDate":        str("Start date, YYYY-MM-DD"),
						"endDate":          str("End date, YYYY-MM-DD, or Present"),
						"responsibilities": str("Summary of responsibilities"),
					},
					Required: []string{"employer", "position", "startDate"},
				},
			},
			"skills":             strList("Skills as written in the resume"),
			"skills_keywords":    strList("REQUIRED GenAI Field - if Skills not keywords, insert array of keyword skills separated by comma"),
			"ai_generated_roles": strList("REQUIRED GenAI Field - generate a list of 10 possible roles person could do based on experience and skills"),
			"references": {
				Type: jsonschema.Array,
				Items: &jsonschema.Definition{
					Type: jsonschema.Object,
					Properties: map[string]jsonschema.Definition{
						"name":         str("Reference name"),
						"relationship": str("Relationship to the applicant"),
						"contact": {
							Type: jsonschema.Object,
							Properties: map[string]jsonschema.Definition{
								"email": str("Reference email"),
								"phone": str("Reference phone"),
							},
						},
					},
					Required: []string{"name", "relationship", "contact"},
				},
			},
		},
		Required: RequiredFields,
	}
}
