package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS extractions (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    created_at TIMESTAMP NOT NULL,
    measure    TEXT      NOT NULL,
    sources    TEXT
);

CREATE TABLE IF NOT EXISTS segments (
    extraction_id      INTEGER NOT NULL REFERENCES extractions (id),
    position           INTEGER NOT NULL,
    sampling_frequency REAL,
    PRIMARY KEY (extraction_id, position)
);

CREATE TABLE IF NOT EXISTS samples (
    extraction_id INTEGER NOT NULL REFERENCES extractions (id),
    seq           INTEGER NOT NULL,
    tstamp        REAL,
    value         REAL,
    PRIMARY KEY (extraction_id, seq)
);`

	insertExtractionSQL = `
INSERT INTO extractions (
                         created_at,
                         measure,
                         sources)
VALUES (?, ?, ?)`

	selectExtractionSQL = `
SELECT 
    e.id, 
    e.created_at, 
    e.measure, 
    e.sources,
    (SELECT COUNT(*) FROM segments g WHERE g.extraction_id = e.id),
    (SELECT COUNT(*) FROM samples s WHERE s.extraction_id = e.id)
FROM extractions e
WHERE 
    e.id = ?`

	selectExtractionsSQL = `
SELECT 
    e.id, 
    e.created_at, 
    e.measure, 
    e.sources,
    (SELECT COUNT(*) FROM segments g WHERE g.extraction_id = e.id),
    (SELECT COUNT(*) FROM samples s WHERE s.extraction_id = e.id)
FROM extractions e
ORDER BY e.id`

	insertSegmentSQL = `
INSERT INTO segments (
                      extraction_id,
                      position,
                      sampling_frequency)
VALUES (?, ?, ?)`

	insertSamplesSQL = `
INSERT INTO samples (
                     extraction_id,
                     seq,
                     tstamp,
                     value)
VALUES `

	selectSegmentsSQL = `
SELECT 
    sampling_frequency 
FROM segments 
WHERE 
    extraction_id = ? 
ORDER BY position`

	selectSamplesSQL = `
SELECT 
    tstamp, 
    value 
FROM samples 
WHERE 
    extraction_id = ? 
ORDER BY seq`
)
