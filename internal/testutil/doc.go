// Package testutil provides scripted fakes shared by package tests.
package testutil
