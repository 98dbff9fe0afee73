package render

import "formcraft/internal/domain"

const DemoNotice = "This is a demonstration form. To create your own branded forms, please sign up and use the form builder."

// DemoForm is shown on the public page when the requested form does not exist.
func DemoForm() *domain.Form {
	return &domain.Form{
		ID:          "demo-form",
		Title:       "Demo Contact Form",
		Description: "This is a demo form to show white-label functionality. Please create a form through the form builder to use this feature.",
		UserID:      "demo-user",
		IsPublic:    true,
		Fields: []domain.Field{
			{ID: "name", Type: domain.FieldText, Label: "Full Name", Placeholder: "Enter your full name", Required: true},
			{ID: "email", Type: domain.FieldEmail, Label: "Email Address", Placeholder: "Enter your email address", Required: true},
			{ID: "message", Type: domain.FieldTextarea, Label: "Message", Placeholder: "Enter your message here...", Required: true},
		},
		Theme: domain.Theme{
			PrimaryColor:    domain.DefaultPrimaryColor,
			BackgroundColor: domain.DefaultBackgroundColor,
			TextColor:       domain.DefaultTextColor,
			CompanyName:     "Demo Company",
		},
	}
}
