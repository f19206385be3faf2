package correo

import (
	"fmt"
	"io"
	"net"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"

	"bitbucket.org/mmdatafocus/seguros_backend/config"
	"bitbucket.org/mmdatafocus/seguros_backend/utils"
)

const (
	imapTimeout   = 30 * time.Second
	maxPorCiclo   = 50
	maxAdjuntoMiB = 20
)

// LeerNoLeidos fetches the unseen messages of the configured mailbox and
// hands each one to procesar. A message is flagged seen only after procesar
// accepts it: parse failures and processing errors leave it unseen so the
// next cycle retries it. IMAP failures come back wrapped in ErrTransientIO.
// Returns the number of messages processed and flagged.
func LeerNoLeidos(settings config.ImapSettings, procesar func(Mensaje) error) (int, error) {
	dialer := &net.Dialer{Timeout: imapTimeout}
	c, err := client.DialWithDialerTLS(dialer, settings.Address, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: conectando a %s: %v", utils.ErrTransientIO, settings.Address, err)
	}
	defer c.Logout()
	c.Timeout = imapTimeout

	if err := c.Login(settings.Username, settings.Password); err != nil {
		return 0, fmt.Errorf("%w: login imap: %v", utils.ErrTransientIO, err)
	}

	if _, err := c.Select(settings.Mailbox, config.InboxReadOnly()); err != nil {
		return 0, fmt.Errorf("%w: seleccionando %s: %v", utils.ErrTransientIO, settings.Mailbox, err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.WithoutFlags = []string{imap.SeenFlag}
	ids, err := c.Search(criteria)
	if err != nil {
		return 0, fmt.Errorf("%w: buscando no leidos: %v", utils.ErrTransientIO, err)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	if len(ids) > maxPorCiclo {
		ids = ids[:maxPorCiclo]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{section.FetchItem(), imap.FetchEnvelope}

	canal := make(chan *imap.Message, len(ids))
	if err := c.Fetch(seqset, items, canal); err != nil {
		return 0, fmt.Errorf("%w: descargando mensajes: %v", utils.ErrTransientIO, err)
	}

	logger := config.GetLogger()
	var mensajes []Mensaje
	for msg := range canal {
		mensaje, err := convertirMensaje(msg, section)
		if err != nil {
			// A single unparseable message must not block the rest of
			// the mailbox. It stays unseen.
			config.LogError(logger, "correo", "LeerNoLeidos", "parseando mensaje", msg.Envelope, err)
			continue
		}
		mensaje.SeqNum = msg.SeqNum
		mensajes = append(mensajes, *mensaje)
	}

	listos := marcables(mensajes, procesar)
	if len(listos) > 0 && !config.InboxReadOnly() {
		vistos := new(imap.SeqSet)
		vistos.AddNum(listos...)
		flags := []interface{}{imap.SeenFlag}
		op := imap.FormatFlagsOp(imap.AddFlags, true)
		if err := c.Store(vistos, op, flags, nil); err != nil {
			return len(listos), fmt.Errorf("%w: marcando leidos: %v", utils.ErrTransientIO, err)
		}
	}

	return len(listos), nil
}

// marcables feeds each message to procesar and returns the sequence numbers
// safe to flag as seen. A failed message is skipped, never flagged.
func marcables(mensajes []Mensaje, procesar func(Mensaje) error) []uint32 {
	var listos []uint32
	for _, m := range mensajes {
		if err := procesar(m); err != nil {
			continue
		}
		listos = append(listos, m.SeqNum)
	}
	return listos
}

func convertirMensaje(msg *imap.Message, section *imap.BodySectionName) (*Mensaje, error) {
	cuerpo := msg.GetBody(section)
	if cuerpo == nil {
		return nil, fmt.Errorf("mensaje sin cuerpo")
	}

	mr, err := mail.CreateReader(cuerpo)
	if err != nil {
		return nil, fmt.Errorf("abriendo mime: %w", err)
	}

	mensaje := &Mensaje{}
	if msg.Envelope != nil {
		mensaje.MessageId = msg.Envelope.MessageId
		mensaje.Asunto = msg.Envelope.Subject
		mensaje.Fecha = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			mensaje.Remitente = msg.Envelope.From[0].Address()
		}
	}

	for {
		parte, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("leyendo parte mime: %w", err)
		}

		switch header := parte.Header.(type) {
		case *mail.InlineHeader:
			contentType, _, _ := header.ContentType()
			if contentType == "text/plain" || mensaje.Cuerpo == "" {
				datos, err := io.ReadAll(parte.Body)
				if err != nil {
					return nil, fmt.Errorf("leyendo cuerpo: %w", err)
				}
				mensaje.Cuerpo = string(datos)
			}
		case *mail.AttachmentHeader:
			nombre, _ := header.Filename()
			contentType, _, _ := header.ContentType()
			datos, err := io.ReadAll(io.LimitReader(parte.Body, maxAdjuntoMiB<<20))
			if err != nil {
				return nil, fmt.Errorf("leyendo adjunto %s: %w", nombre, err)
			}
			mensaje.Adjuntos = append(mensaje.Adjuntos, Adjunto{
				Nombre:      nombre,
				ContentType: contentType,
				Datos:       datos,
			})
		}
	}

	return mensaje, nil
}
