package urls

// External documentation for the services cloudia talks to.

// TTSMQTT describes The Things Stack MQTT integration: broker addresses,
// API key rights and the uplink/downlink topics.
const TTSMQTT = "https://www.thethingsindustries.com/docs/integrations/mqtt/"

// TTSAPIKeys explains how to create an application API key, used as the
// MQTT password.
const TTSAPIKeys = "https://www.thethingsindustries.com/docs/the-things-stack/management/api-keys/"

// InfluxTokens explains how to create an InfluxDB v2 API token with write
// access to a bucket.
const InfluxTokens = "https://docs.influxdata.com/influxdb/v2/admin/tokens/"
