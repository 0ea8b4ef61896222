package domain

import "time"

// Profile is a single member record in the roster. First and last name
// are the only required fields; everything else is optional and stored
// as NULL when absent. ID and UpdatedAt are assigned by the store.
type Profile struct {
	ID             int64     `json:"id"`
	PhotoPath      *string   `json:"photoUrl"`
	SignaturePath  *string   `json:"signatureUrl"`
	MilitaryID     *string   `json:"militaryId"`
	Rank           *string   `json:"rank"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Nickname       *string   `json:"nickname"`
	Corps          *string   `json:"corps"`
	Position       *string   `json:"position"`
	Unit           *string   `json:"unit"`
	BirthDate      *Date     `json:"birthDate"`
	RetirementYear *int      `json:"retirementYear"`
	Phone1         *string   `json:"phone1"`
	Phone2         *string   `json:"phone2"`
	Email          *string   `json:"email"`
	LineID         *string   `json:"lineId"`
	Status         *string   `json:"status"`
	ChildrenMale   int       `json:"childrenMale"`
	ChildrenFemale int       `json:"childrenFemale"`
	HouseNo        *string   `json:"houseNo"`
	Soi            *string   `json:"soi"`
	Road           *string   `json:"road"`
	Subdistrict    *string   `json:"subdistrict"`
	District       *string   `json:"district"`
	Province       *string   `json:"province"`
	ZipCode        *string   `json:"zipCode"`
	UpdatedAt      time.Time `json:"updated_at"`
}
