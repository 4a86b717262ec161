// Package mail provides the SMTP-backed signon.Notifier used to deliver
// OTP codes and password-reset links.
package mail
