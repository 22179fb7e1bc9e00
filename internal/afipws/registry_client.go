package afipws

import (
	"context"
	"encoding/xml"
	"sort"
	"strings"
	"time"

	"padron/internal/registry"
	"padron/internal/ticket"
	dErrors "padron/pkg/domain-errors"
)

// RegistryClient implements registry.Client against the authority's
// taxpayer-registry SOAP service.
type RegistryClient struct {
	transport       *HTTPTransport
	representedCUIT string
}

func NewRegistryClient(transport *HTTPTransport, representedCUIT string) *RegistryClient {
	return &RegistryClient{
		transport:       transport,
		representedCUIT: representedCUIT,
	}
}

type getPersonaEnvelope struct {
	XMLName   xml.Name `xml:"soapenv:Envelope"`
	SoapNS    string   `xml:"xmlns:soapenv,attr"`
	ServiceNS string   `xml:"xmlns:a4,attr"`
	Body      struct {
		GetPersona struct {
			Token           string `xml:"token"`
			Sign            string `xml:"sign"`
			RepresentedCUIT string `xml:"cuitRepresentada"`
			PersonID        string `xml:"idPersona"`
		} `xml:"a4:getPersona"`
	} `xml:"soapenv:Body"`
}

type personaActivity struct {
	ID    int `xml:"idActividad"`
	Order int `xml:"orden"`
}

type personaPayload struct {
	PersonType   string `xml:"tipoPersona"`
	FirstName    string `xml:"nombre"`
	LastName     string `xml:"apellido"`
	LegalName    string `xml:"razonSocial"`
	Status       string `xml:"estadoClave"`
	RegisteredAt string `xml:"fechaInscripcion"`
	Taxes        []struct {
		ID     int    `xml:"idImpuesto"`
		Status string `xml:"estado"`
	} `xml:"impuesto"`
	Monotributo []struct {
		ID int `xml:"idCategoria"`
	} `xml:"categoriaMonotributo"`
	Activities []personaActivity `xml:"actividad"`
	Addresses  []struct {
		Kind       string `xml:"tipoDomicilio"`
		Street     string `xml:"direccion"`
		City       string `xml:"localidad"`
		PostalCode string `xml:"codPostal"`
		Province   int    `xml:"idProvincia"`
	} `xml:"domicilio"`
}

// empty reports whether the response carried no persona at all. Some
// deployments answer an unknown taxpayer with a bare personaReturn instead
// of a fault.
func (p personaPayload) empty() bool {
	return p.PersonType == "" && p.Status == "" &&
		p.LegalName == "" && p.FirstName == "" && p.LastName == ""
}

type personaResponse struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault struct {
			FaultString string `xml:"faultstring"`
		} `xml:"Fault"`
		Persona personaPayload `xml:"getPersonaResponse>personaReturn>persona"`
	} `xml:"Body"`
}

// Lookup queries the registry for one taxpayer. A remote "no person" fault
// maps to registry.ErrNotFound; every other fault message is surfaced
// verbatim so operators see what the authority reported.
func (c *RegistryClient) Lookup(ctx context.Context, code string, t ticket.Ticket, endpointURL string) (registry.Record, error) {
	envelope, err := buildGetPersona(t, c.representedCUIT, code)
	if err != nil {
		return registry.Record{}, dErrors.Wrap(err, dErrors.CodeInternal, "build registry request")
	}

	raw, err := c.transport.Send(ctx, envelope, endpointURL)
	if err != nil {
		return registry.Record{}, dErrors.Wrap(err, dErrors.CodeTransport, "registry request failed")
	}

	var resp personaResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return registry.Record{}, dErrors.Wrap(err, dErrors.CodeTransport, "malformed registry response")
	}

	if fault := resp.Body.Fault.FaultString; fault != "" {
		if isNotFoundFault(fault) {
			return registry.Record{}, registry.ErrNotFound
		}
		return registry.Record{}, dErrors.Newf(dErrors.CodeTransport, "registry fault: %s", fault)
	}

	if resp.Body.Persona.empty() {
		return registry.Record{}, registry.ErrNotFound
	}

	return mapPersona(resp.Body.Persona), nil
}

func buildGetPersona(t ticket.Ticket, representedCUIT, personID string) ([]byte, error) {
	env := getPersonaEnvelope{
		SoapNS:    "http://schemas.xmlsoap.org/soap/envelope/",
		ServiceNS: "http://a4.soap.ws.server.puc.sr/",
	}
	env.Body.GetPersona.Token = t.Token
	env.Body.GetPersona.Sign = t.Sign
	env.Body.GetPersona.RepresentedCUIT = representedCUIT
	env.Body.GetPersona.PersonID = personID

	out, err := xml.Marshal(env)
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

// The registry reports missing taxpayers as a fault rather than an empty
// result. Match loosely; the exact wording has changed across deployments.
func isNotFoundFault(fault string) bool {
	lower := strings.ToLower(fault)
	return strings.Contains(lower, "no existe") || strings.Contains(lower, "not found")
}

func mapPersona(p personaPayload) registry.Record {
	rec := registry.Record{
		PersonType:  registry.PersonType(p.PersonType),
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		LegalName:   p.LegalName,
		Status:      p.Status,
		Monotributo: len(p.Monotributo) > 0,
	}

	if ts, err := time.Parse(time.RFC3339, p.RegisteredAt); err == nil {
		rec.RegisteredAt = ts
	} else if ts, err := time.Parse("2006-01-02", p.RegisteredAt); err == nil {
		rec.RegisteredAt = ts
	}

	for _, tax := range p.Taxes {
		if tax.Status == "" || strings.EqualFold(tax.Status, "ACTIVO") {
			rec.TaxCodes = append(rec.TaxCodes, tax.ID)
		}
	}

	// Activities may arrive unordered; the "orden" field decides which is
	// primary.
	acts := make([]personaActivity, len(p.Activities))
	copy(acts, p.Activities)
	sort.SliceStable(acts, func(i, j int) bool { return acts[i].Order < acts[j].Order })
	for _, act := range acts {
		rec.Activities = append(rec.Activities, act.ID)
	}

	for _, addr := range p.Addresses {
		rec.Addresses = append(rec.Addresses, registry.Address{
			Kind:         addr.Kind,
			Street:       addr.Street,
			City:         addr.City,
			PostalCode:   addr.PostalCode,
			ProvinceCode: addr.Province,
		})
	}
	return rec
}
