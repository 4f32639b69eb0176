package cep

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/iris-assistant/backend/internal/providers/httpjson"
	"github.com/iris-assistant/backend/pkg/apperr"
)

type Address struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Estado      string `json:"estado"`
}

type Client struct {
	baseURL string
	http    *httpjson.Client
}

var statusMessages = apperr.StatusMessages{
	NotFound: "CEP não encontrado",
	Default:  "Erro ao buscar CEP",
}

func NewClient(baseURL string, timeoutSec int) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpjson.New("viacep", time.Duration(timeoutSec)*time.Second),
	}
}

type apiResponse struct {
	CEP         string `json:"cep"`
	Logradouro  string `json:"logradouro"`
	Complemento string `json:"complemento"`
	Bairro      string `json:"bairro"`
	Localidade  string `json:"localidade"`
	UF          string `json:"uf"`
	Erro        any    `json:"erro"`
}

// Lookup accepts "12345-678" or "12345678"; any other character is ignored.
func (c *Client) Lookup(ctx context.Context, cep string) (*Address, error) {
	digits := Normalize(cep)
	if len(digits) != 8 {
		return nil, apperr.InvalidInput("CEP inválido. Use o formato: 12345-678 ou 12345678")
	}

	var resp apiResponse
	if err := c.http.GetJSON(ctx, fmt.Sprintf("%s/ws/%s/json/", c.baseURL, digits), &resp, statusMessages); err != nil {
		return nil, err
	}
	if flagged(resp.Erro) {
		return nil, apperr.NotFound("CEP não encontrado")
	}

	return &Address{
		CEP:         resp.CEP,
		Logradouro:  resp.Logradouro,
		Complemento: resp.Complemento,
		Bairro:      resp.Bairro,
		Localidade:  resp.Localidade,
		UF:          resp.UF,
		Estado:      StateName(resp.UF),
	}, nil
}

// ViaCEP has sent both `true` and `"true"` for erro.
func flagged(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

func Normalize(cep string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, cep)
}

var states = map[string]string{
	"AC": "Acre",
	"AL": "Alagoas",
	"AP": "Amapá",
	"AM": "Amazonas",
	"BA": "Bahia",
	"CE": "Ceará",
	"DF": "Distrito Federal",
	"ES": "Espírito Santo",
	"GO": "Goiás",
	"MA": "Maranhão",
	"MT": "Mato Grosso",
	"MS": "Mato Grosso do Sul",
	"MG": "Minas Gerais",
	"PA": "Pará",
	"PB": "Paraíba",
	"PR": "Paraná",
	"PE": "Pernambuco",
	"PI": "Piauí",
	"RJ": "Rio de Janeiro",
	"RN": "Rio Grande do Norte",
	"RS": "Rio Grande do Sul",
	"RO": "Rondônia",
	"RR": "Roraima",
	"SC": "Santa Catarina",
	"SP": "São Paulo",
	"SE": "Sergipe",
	"TO": "Tocantins",
}

// StateName returns the full state name, or uf itself when unknown.
func StateName(uf string) string {
	if name, ok := states[strings.ToUpper(uf)]; ok {
		return name
	}
	return uf
}

func Format(a *Address) string {
	street := a.Logradouro
	if a.Complemento != "" {
		street += ", " + a.Complemento
	}
	return fmt.Sprintf("📍 CEP %s:\n%s\n%s - %s/%s\n%s", a.CEP, street, a.Bairro, a.Localidade, a.UF, a.Estado)
}
