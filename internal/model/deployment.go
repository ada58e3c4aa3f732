package model

import "strings"

// DeploymentType is the environment classification of a deployment.
type DeploymentType struct {
	Label string `json:"label"`
}

// Deployment describes one customer infrastructure target.
type Deployment struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Type DeploymentType `json:"type"`
}

// DisplayLabel returns the label shown for this deployment, preferring the
// explicit name over the type label.
func (d Deployment) DisplayLabel() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Type.Label
}

// ProductRef identifies an installed product.
type ProductRef struct {
	Label string `json:"label"`
}

// InstalledProduct is one product+version record for a deployment.
type InstalledProduct struct {
	Product ProductRef `json:"product"`
	Version string     `json:"version"`
}

// DisplayLabel renders the product as "<label> <version>".
func (p InstalledProduct) DisplayLabel() string {
	return strings.TrimSpace(p.Product.Label + " " + p.Version)
}

// ProductMap maps an environment label to the de-duplicated,
// order-preserving list of product display labels installed there.
type ProductMap map[string][]string

// Clone returns a deep copy of the map.
func (m ProductMap) Clone() ProductMap {
	if m == nil {
		return nil
	}
	out := make(ProductMap, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// ListDeploymentsResponse is the wire payload for the deployment listing.
type ListDeploymentsResponse struct {
	Deployments []Deployment `json:"deployments"`
}

// ListProductsResponse is the wire payload for a deployment's products.
type ListProductsResponse struct {
	Products []InstalledProduct `json:"products"`
}
