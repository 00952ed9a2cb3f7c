package model

// Category はイベントの分類。名前は一意。
type Category struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (c *Category) GetID() string   { return c.ID }
func (c *Category) SetID(id string) { c.ID = id }

func (c *Category) Validate() []string {
	var errs fieldErrors
	errs.required("name", c.Name)
	errs.maxLen("name", c.Name, 100)
	return errs
}

func (c *Category) SanitizeText(clean func(string) string) {
	c.Name = clean(c.Name)
	c.Description = clean(c.Description)
}
