package models

type Group struct {
	ID          string
	Name        string
	Permissions []Permission
}

type Permission struct {
	ID   string
	Name string
}
