// AngelaMos | 2026
// dto.go

package entitlement

type CheckAccessRequest struct {
	Feature  string   `json:"feature,omitempty"  validate:"required_without=Features,omitempty,min=1,max=64"`
	Features []string `json:"features,omitempty" validate:"required_without=Feature,omitempty,min=1,max=32,dive,min=1,max=64"`
}

type CheckAccessResponse struct {
	Results map[Feature]*AccessResult `json:"results"`
}

type EntitlementsResponse struct {
	Entitlements *Entitlements `json:"entitlements"`
}
