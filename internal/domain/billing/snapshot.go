package billing

// CustomerSnapshot is a denormalized copy of a customer's contact fields,
// captured onto invoices and payments at write time. It keeps invoices and
// payments readable and authorizable after the live customer record has been
// edited or deleted.
type CustomerSnapshot struct {
	Name        string `json:"name"`
	CompanyName string `json:"company_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
}

// IsZero returns true when no field is set
func (s CustomerSnapshot) IsZero() bool {
	return s == CustomerSnapshot{}
}

// ResolveWith returns the effective snapshot given the live customer data,
// when still attached. Live fields win; stored snapshot fields fill any gap.
// A nil live relation yields the stored snapshot unchanged.
func (s CustomerSnapshot) ResolveWith(live *CustomerSnapshot) CustomerSnapshot {
	if live == nil {
		return s
	}
	out := *live
	if out.Name == "" {
		out.Name = s.Name
	}
	if out.CompanyName == "" {
		out.CompanyName = s.CompanyName
	}
	if out.Email == "" {
		out.Email = s.Email
	}
	if out.Phone == "" {
		out.Phone = s.Phone
	}
	if out.Address == "" {
		out.Address = s.Address
	}
	return out
}
