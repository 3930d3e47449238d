package service

import "fmt"

func activationEmailTemplate(name, activateURL, appName string) (string, string) {
	subject := fmt.Sprintf("Verify your email for %s", appName)
	body := fmt.Sprintf(`Hi %s,

Thanks for signing up. Please verify your email address by clicking this link:
%s

Once verified you'll get your own home room for meetings.

If you didn't create this account, ignore this email.

Best,
The %s Team`, name, activateURL, appName)

	return subject, body
}

func passwordResetEmailTemplate(name, resetURL, appName string) (string, string) {
	subject := fmt.Sprintf("Reset your password for %s", appName)
	body := fmt.Sprintf(`Hi %s,

You requested to reset your password. Set a new one with this link:
%s

This link expires in 2 hours and can only be used once.

If you didn't request this, you can safely ignore this email. Your password won't be changed.

Best,
The %s Team`, name, resetURL, appName)

	return subject, body
}
