package lgpd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/comunidadegraca/portal/internal/config"
)

// Canais de entrega do código de verificação.
const (
	CanalSMS   = "sms"
	CanalEmail = "email"
)

// SMSSender envia mensagens curtas via gateway externo.
type SMSSender interface {
	EnviarSMS(ctx context.Context, telefone, mensagem string) error
}

// EmailSender envia e-mails transacionais via provedor externo.
type EmailSender interface {
	EnviarEmail(ctx context.Context, destinatario, assunto, corpo string) error
}

// HTTPSMSGateway publica mensagens no gateway de SMS por HTTP.
type HTTPSMSGateway struct {
	apiURL   string
	apiToken string
	client   *http.Client
}

// NewHTTPSMSGateway cria gateway configurado; devolve nil sem URL.
func NewHTTPSMSGateway(cfg config.SMSConfig) *HTTPSMSGateway {
	if cfg.APIURL == "" {
		return nil
	}
	return &HTTPSMSGateway{
		apiURL:   cfg.APIURL,
		apiToken: cfg.APIToken,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// EnviarSMS publica a mensagem no gateway.
func (g *HTTPSMSGateway) EnviarSMS(ctx context.Context, telefone, mensagem string) error {
	if g == nil || g.apiURL == "" {
		return errors.New("gateway de sms não configurado")
	}

	payload := map[string]string{
		"to":      telefone,
		"message": mensagem,
	}

	return postJSON(ctx, g.client, g.apiURL, g.apiToken, payload, "falha no envio de sms")
}

// HTTPEmailProvider publica e-mails no provedor transacional por HTTP.
type HTTPEmailProvider struct {
	apiURL    string
	apiToken  string
	remetente string
	client    *http.Client
}

// NewHTTPEmailProvider cria provedor configurado; devolve nil sem URL.
func NewHTTPEmailProvider(cfg config.EmailConfig) *HTTPEmailProvider {
	if cfg.APIURL == "" {
		return nil
	}
	return &HTTPEmailProvider{
		apiURL:    cfg.APIURL,
		apiToken:  cfg.APIToken,
		remetente: cfg.Remetente,
		client:    &http.Client{Timeout: 5 * time.Second},
	}
}

// EnviarEmail publica o e-mail no provedor.
func (p *HTTPEmailProvider) EnviarEmail(ctx context.Context, destinatario, assunto, corpo string) error {
	if p == nil || p.apiURL == "" {
		return errors.New("provedor de e-mail não configurado")
	}

	payload := map[string]string{
		"from":    p.remetente,
		"to":      destinatario,
		"subject": assunto,
		"text":    corpo,
	}

	return postJSON(ctx, p.client, p.apiURL, p.apiToken, payload, "falha no envio de e-mail")
}

func postJSON(ctx context.Context, client *http.Client, url, token string, payload any, failMsg string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return errors.New(failMsg)
	}
	return nil
}
