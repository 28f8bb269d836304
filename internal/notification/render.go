package notification

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

const qrSize = 200 // pixels

// Confirmation is a rendered purchase confirmation mail.
type Confirmation struct {
	Subject string
	HTML    string
}

// Renderer turns a ticket into a confirmation mail whose QR code points at
// the ticket's watch endpoint.
type Renderer struct {
	baseURL string
	tmpl    *template.Template
}

func NewRenderer(baseURL string) *Renderer {
	return &Renderer{
		baseURL: strings.TrimRight(baseURL, "/"),
		tmpl:    template.Must(template.New("confirmation").Parse(confirmationHTML)),
	}
}

// WatchURL is the URL encoded in a ticket's QR code.
func (r *Renderer) WatchURL(ticketID string) string {
	return fmt.Sprintf("%s/tickets/%s/watch", r.baseURL, ticketID)
}

// Render builds the confirmation for t.  The ticket must be loaded with its
// session and movie.
func (r *Renderer) Render(t *model.Ticket) (Confirmation, error) {
	if t.Session == nil || t.Session.Movie == nil {
		return Confirmation{}, fmt.Errorf("ticket %s loaded without session and movie", t.ID)
	}
	png, err := qrcode.Encode(r.WatchURL(t.ID), qrcode.Highest, qrSize)
	if err != nil {
		return Confirmation{}, fmt.Errorf("encode qr code: %w", err)
	}

	var buf bytes.Buffer
	err = r.tmpl.Execute(&buf, struct {
		Movie  string
		Date   string
		Time   string
		QRCode template.URL
	}{
		Movie:  t.Session.Movie.Name,
		Date:   t.Session.Date.Format("January 2, 2006"),
		Time:   string(t.Session.TimeSlot),
		QRCode: template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png)),
	})
	if err != nil {
		return Confirmation{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Confirmation{
		Subject: "Ticket Confirmation - " + t.Session.Movie.Name,
		HTML:    buf.String(),
	}, nil
}

const confirmationHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Movie Ticket Confirmation</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 0; padding: 0; background-color: #f4f4f4; }
    .container { max-width: 600px; margin: 20px auto; background-color: #ffffff; border-radius: 8px; overflow: hidden; }
    .header { background-color: #1a237e; color: #ffffff; padding: 20px; text-align: center; }
    .content { padding: 30px; text-align: center; }
    .ticket-info { background-color: #f8f9fa; border-radius: 8px; padding: 20px; margin: 20px 0; }
    .movie-name { font-size: 24px; color: #1a237e; font-weight: bold; margin-bottom: 20px; }
    .footer { background-color: #f2f2f2; color: #777777; padding: 20px; text-align: center; font-size: 14px; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>Movie Ticket Confirmation</h1></div>
    <div class="content">
      <p>Thank you for your purchase! Here are your ticket details:</p>
      <div class="ticket-info">
        <div class="movie-name">{{.Movie}}</div>
        <div class="ticket-detail"><strong>Date:</strong> {{.Date}}</div>
        <div class="ticket-detail"><strong>Time:</strong> {{.Time}}</div>
      </div>
      <img src="{{.QRCode}}" alt="Ticket QR Code" width="200" height="200">
      <p>Please show this email or your QR code at the cinema entrance.</p>
    </div>
    <div class="footer">
      <p>This is an automated confirmation email. Please do not reply.</p>
    </div>
  </div>
</body>
</html>
`
